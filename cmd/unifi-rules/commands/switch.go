package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexfrei/go-unifi-rules/api/controller"
	"github.com/lexfrei/go-unifi-rules/internal/poller"
)

// newSwitchCommand builds allow (on=true) and block (on=false).
func newSwitchCommand(a *app, use string, on bool) *cobra.Command {
	short := "Turn a rule off so the traffic it matches is blocked"
	if on {
		short = "Turn a rule on so the traffic it matches is allowed"
	}

	return &cobra.Command{
		Use:   use + " <traffic|firewall> <key>",
		Short: short,
		Long: short + `.

The key is the description of a traffic rule or the name of a firewall rule,
matched exactly.`,
		Example: fmt.Sprintf("  unifi-rules %s traffic \"Kids tablets\"\n  unifi-rules %s firewall \"Block IoT to LAN\"", use, use),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := controller.ParseKind(args[0])
			if err != nil {
				return err
			}
			sw := poller.Switch{Kind: kind, Key: args[1]}

			client, err := a.newClient(nil)
			if err != nil {
				return err
			}

			p := poller.New(client, poller.Config{Logger: a.logger})
			if err := p.Toggle(cmd.Context(), sw, on); err != nil {
				return err
			}

			// Report what the controller says now, falling back to the
			// requested state when the refresh after the write failed.
			state := on
			if snap := p.Snapshot(); snap != nil {
				state = snap.IsOn(sw)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", sw.Name(), stateName(state))
			return nil
		},
	}
}
