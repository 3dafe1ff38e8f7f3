package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/lexfrei/go-unifi-rules/api/controller"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// errCannotConnect is all validate reports; the cause goes to the debug log.
var errCannotConnect = errors.New("cannot connect to the controller: check host, credentials and TLS settings")

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the controller is reachable and the credentials are accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, err := controller.Validate(cmd.Context(), a.cfg.ClientConfig(a.logger, nil))
			if err != nil {
				a.logger.Debug("validation failed",
					observability.Err(err),
				)
				return errCannotConnect
			}

			fmt.Fprintln(cmd.OutOrStdout(), title)
			return nil
		},
	}
}
