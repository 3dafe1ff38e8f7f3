package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lexfrei/go-unifi-rules/internal/filter"
	"github.com/lexfrei/go-unifi-rules/internal/poller"
)

// switchView is the JSON shape of one listed switch.
type switchView struct {
	Name     string `json:"name"`
	UniqueID string `json:"unique_id"`
	Kind     string `json:"kind"`
	Key      string `json:"key"`
	ID       string `json:"id"`
	Action   string `json:"action"`
	On       bool   `json:"on"`
}

func newListCommand(a *app) *cobra.Command {
	var (
		expression string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List traffic and firewall rules with their switch state",
		Example: `  unifi-rules list
  unifi-rules list --filter 'kind == "firewall" && !on'
  unifi-rules list --filter 'key contains "kids"' --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filter.Compile(expression)
			if err != nil {
				return err
			}

			client, err := a.newClient(nil)
			if err != nil {
				return err
			}

			snap, err := poller.New(client, poller.Config{Logger: a.logger}).Refresh(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := f.Select(snap.Entries())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeTable(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVarP(&expression, "filter", "f", "", "expression over kind, key, id, name, action and on")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func writeJSON(w io.Writer, entries []poller.Entry) error {
	views := make([]switchView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, switchView{
			Name:     entry.Name(),
			UniqueID: entry.UniqueID(),
			Kind:     string(entry.Kind),
			Key:      entry.Key,
			ID:       entry.Rule.ID,
			Action:   entry.Rule.Action,
			On:       entry.On(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func writeTable(w io.Writer, entries []poller.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tACTION\tSTATE\tUNIQUE ID")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			entry.Name(), entry.Kind, entry.Rule.Action, stateName(entry.On()), entry.UniqueID())
	}
	return tw.Flush()
}

func stateName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
