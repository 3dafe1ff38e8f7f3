package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/internal/response"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// ListTrafficRules fetches the site's traffic rules keyed by description.
func (c *Client) ListTrafficRules(ctx context.Context) (RuleSet, error) {
	return c.ListRules(ctx, KindTraffic)
}

// ListFirewallRules fetches the site's firewall rules keyed by name.
func (c *Client) ListFirewallRules(ctx context.Context) (RuleSet, error) {
	return c.ListRules(ctx, KindFirewall)
}

// ListRules fetches the rules of one kind. Entries whose key member is missing,
// null or not a JSON string are skipped, and so are absent from the result. An
// empty string is a valid key. When two entries share a key the later one wins.
func (c *Client) ListRules(ctx context.Context, kind Kind) (RuleSet, error) {
	tgt, err := c.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	return c.fetchRules(ctx, tgt, kind)
}

func (c *Client) fetchRules(ctx context.Context, tgt target, kind Kind) (RuleSet, error) {
	resp, err := c.get(ctx, c.resolveURL(tgt.udm, rulesPath(kind, tgt.site)))
	defer response.Close(resp)

	if err := response.Check(resp, err, "failed to list "+string(kind)+" rules"); err != nil {
		c.metrics.RecordError("list_"+string(kind)+"_rules", "FetchError")
		return nil, &FetchError{Kind: kind, StatusCode: response.StatusCode(err), Err: transportCause(err)}
	}

	objects, err := response.DecodeList[map[string]json.RawMessage](resp.Body, "failed to decode "+string(kind)+" rules")
	if err != nil {
		c.metrics.RecordError("list_"+string(kind)+"_rules", "FetchError")
		return nil, &FetchError{Kind: kind, Err: err}
	}

	rules := make(RuleSet, len(objects))
	skipped := 0
	for _, fields := range objects {
		rule, ok := decodeRule(kind, fields)
		if !ok {
			skipped++
			continue
		}
		rules[rule.Key] = rule
	}

	c.logger.Debug("fetched rules",
		observability.Field{Key: "kind", Value: string(kind)},
		observability.Field{Key: "count", Value: len(rules)},
		observability.Field{Key: "skipped", Value: skipped},
	)

	return rules, nil
}

// SetTrafficRule sets a traffic rule's action to ALLOW (allow) or BLOCK.
func (c *Client) SetTrafficRule(ctx context.Context, key string, allow bool) error {
	return c.SetRule(ctx, KindTraffic, key, allow)
}

// SetFirewallRule sets a firewall rule's action to accept (allow) or drop.
func (c *Client) SetFirewallRule(ctx context.Context, key string, allow bool) error {
	return c.SetRule(ctx, KindFirewall, key, allow)
}

// SetRule re-reads the rules of kind, changes the action of the rule named key and
// writes the whole object back. The write is sent even when the action already matches.
func (c *Client) SetRule(ctx context.Context, kind Kind, key string, on bool) error {
	tgt, err := c.ensureReady(ctx)
	if err != nil {
		return err
	}

	rules, err := c.fetchRules(ctx, tgt, kind)
	if err != nil {
		return err
	}

	rule, ok := rules[key]
	if !ok {
		c.metrics.RecordError("set_"+string(kind)+"_rule", "NotFoundError")
		return &NotFoundError{Kind: kind, Key: key}
	}

	if rule.ID == "" {
		c.metrics.RecordError("set_"+string(kind)+"_rule", "UpdateError")
		return &UpdateError{Kind: kind, Key: key, Err: errors.New("rule has no _id")}
	}

	updated := rule.withAction(kind.Action(on))

	body, err := json.Marshal(updated)
	if err != nil {
		return &UpdateError{Kind: kind, Key: key, Err: errors.Wrap(err, "failed to encode rule")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.resolveURL(tgt.udm, rulePath(kind, tgt.site, rule.ID)), bytes.NewReader(body))
	if err != nil {
		return &UpdateError{Kind: kind, Key: key, Err: errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	defer response.Close(resp)

	// TODO: re-login once and replay when a write comes back 401 after the session expired.
	if err := response.Check(resp, err, "failed to update rule", http.StatusOK, http.StatusCreated); err != nil {
		c.metrics.RecordError("set_"+string(kind)+"_rule", "UpdateError")
		return &UpdateError{Kind: kind, Key: key, StatusCode: response.StatusCode(err), Err: transportCause(err)}
	}

	c.logger.Info("updated rule",
		observability.Field{Key: "kind", Value: string(kind)},
		observability.Field{Key: "key", Value: key},
		observability.Field{Key: "action", Value: updated.Action},
	)

	return nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	//nolint:wrapcheck // Callers classify transport errors into typed errors
	return c.http.Do(req)
}
