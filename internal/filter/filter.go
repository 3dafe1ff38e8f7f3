// Package filter selects rule switches with boolean expressions such as
//
//	kind == "firewall" && !on
//	key contains "kids" || action == "BLOCK"
package filter

import (
	"github.com/cockroachdb/errors"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/lexfrei/go-unifi-rules/internal/poller"
)

// Env is the set of variables an expression can reference.
type Env struct {
	Kind   string `expr:"kind"`
	Key    string `expr:"key"`
	ID     string `expr:"id"`
	Name   string `expr:"name"`
	Action string `expr:"action"`
	On     bool   `expr:"on"`
}

// EnvFor exposes an entry to expressions.
func EnvFor(entry poller.Entry) Env {
	return Env{
		Kind:   string(entry.Kind),
		Key:    entry.Key,
		ID:     entry.Rule.ID,
		Name:   entry.Name(),
		Action: entry.Rule.Action,
		On:     entry.On(),
	}
}

// Filter is a compiled expression. The zero value and nil match everything.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses source. An empty source yields a filter that matches everything.
func Compile(source string) (*Filter, error) {
	if source == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid filter %q", source)
	}

	return &Filter{source: source, program: program}, nil
}

// String returns the expression source.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match evaluates the filter against one entry.
func (f *Filter) Match(entry poller.Entry) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	out, err := expr.Run(f.program, EnvFor(entry))
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate filter %q", f.source)
	}

	matched, ok := out.(bool)
	if !ok {
		return false, errors.Newf("filter %q returned %T, want bool", f.source, out)
	}

	return matched, nil
}

// Select returns the entries that match, preserving order.
func (f *Filter) Select(entries []poller.Entry) ([]poller.Entry, error) {
	selected := make([]poller.Entry, 0, len(entries))
	for _, entry := range entries {
		ok, err := f.Match(entry)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, entry)
		}
	}
	return selected, nil
}
