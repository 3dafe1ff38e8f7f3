package controller

import (
	"context"
)

// Validate checks that cfg reaches a controller and its credentials are accepted.
// On success it returns a title for the rule set, "<console name> Rule Management".
func Validate(ctx context.Context, cfg *ClientConfig) (string, error) {
	client, err := NewWithConfig(cfg)
	if err != nil {
		return "", err
	}

	if err := client.Authenticate(ctx); err != nil {
		return "", err
	}

	name, err := client.DisplayName(ctx)
	if err != nil {
		return "", err
	}

	return name + " Rule Management", nil
}
