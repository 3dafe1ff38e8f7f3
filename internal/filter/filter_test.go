package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-unifi-rules/api/controller"
	"github.com/lexfrei/go-unifi-rules/internal/filter"
	"github.com/lexfrei/go-unifi-rules/internal/poller"
)

func entries() []poller.Entry {
	snap := &poller.Snapshot{
		Traffic: controller.RuleSet{
			"kids tablets": {Kind: controller.KindTraffic, ID: "1", Key: "kids tablets", Action: controller.ActionBlock},
			"gaming":       {Kind: controller.KindTraffic, ID: "2", Key: "gaming", Action: controller.ActionAllow},
		},
		Firewall: controller.RuleSet{
			"iot":       {Kind: controller.KindFirewall, ID: "3", Key: "iot", Action: controller.ActionDrop},
			"guest dns": {Kind: controller.KindFirewall, ID: "4", Key: "guest dns", Action: controller.ActionAccept},
		},
	}
	return snap.Entries()
}

func keys(selected []poller.Entry) []string {
	out := make([]string, 0, len(selected))
	for _, entry := range selected {
		out = append(out, entry.Key)
	}
	return out
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want []string
	}{
		{name: "empty matches all", expr: "", want: []string{"gaming", "kids tablets", "guest dns", "iot"}},
		{name: "by kind and state", expr: `kind == "firewall" && !on`, want: []string{"iot"}},
		{name: "substring", expr: `key contains "kids"`, want: []string{"kids tablets"}},
		{name: "by action", expr: `action in ["ALLOW", "accept"]`, want: []string{"gaming", "guest dns"}},
		{name: "by id", expr: `id == "3"`, want: []string{"iot"}},
		{name: "by display name", expr: `name startsWith "Guest"`, want: []string{"guest dns"}},
		{name: "none", expr: `false`, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := filter.Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, f.String())

			selected, err := f.Select(entries())
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(selected))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []string{
		`kind ==`,
		`unknown_var == 1`,
		`key`,
	}

	for _, source := range tests {
		t.Run(source, func(t *testing.T) {
			t.Parallel()

			_, err := filter.Compile(source)
			require.Error(t, err)
		})
	}
}

func TestNilFilterMatchesAll(t *testing.T) {
	t.Parallel()

	var f *filter.Filter
	selected, err := f.Select(entries())
	require.NoError(t, err)
	assert.Len(t, selected, 4)
}
