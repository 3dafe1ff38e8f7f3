package poller

import (
	"cmp"
	"slices"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lexfrei/go-unifi-rules/api/controller"
)

// Switch identifies one rule exposed as an on/off switch.
type Switch struct {
	Kind controller.Kind
	Key  string
}

// Name is the display name: the key with its first letter upper-cased and the
// rest lower-cased, followed by the rule kind.
func (s Switch) Name() string {
	suffix := " Traffic Rule"
	if s.Kind == controller.KindFirewall {
		suffix = " Firewall Rule"
	}
	return capitalize(s.Key) + suffix
}

// UniqueID is stable across restarts as long as the rule key does not change.
func (s Switch) UniqueID() string {
	return "unifi_" + string(s.Kind) + "_rule_" + s.Key
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	// Casers keep state, so each call gets its own.
	return cases.Upper(language.Und).String(string(r)) + cases.Lower(language.Und).String(s[size:])
}

// Entry is a switch together with the rule behind it.
type Entry struct {
	Switch
	Rule controller.Rule
}

// On reports the switch state.
func (e Entry) On() bool {
	return e.Rule.IsOn()
}

// Snapshot is the result of one successful poll.
type Snapshot struct {
	Traffic   controller.RuleSet
	Firewall  controller.RuleSet
	FetchedAt time.Time
}

func (s *Snapshot) set(kind controller.Kind) controller.RuleSet {
	if kind == controller.KindFirewall {
		return s.Firewall
	}
	return s.Traffic
}

// Rule returns the rule behind sw.
func (s *Snapshot) Rule(sw Switch) (controller.Rule, bool) {
	rule, ok := s.set(sw.Kind)[sw.Key]
	return rule, ok
}

// IsOn reports whether the rule behind sw allows traffic. Unknown switches are off.
func (s *Snapshot) IsOn(sw Switch) bool {
	rule, ok := s.Rule(sw)
	return ok && rule.IsOn()
}

// Entries lists traffic rules before firewall rules, each sorted by key.
func (s *Snapshot) Entries() []Entry {
	entries := make([]Entry, 0, len(s.Traffic)+len(s.Firewall))
	for _, kind := range []controller.Kind{controller.KindTraffic, controller.KindFirewall} {
		start := len(entries)
		for key, rule := range s.set(kind) {
			entries = append(entries, Entry{Switch: Switch{Kind: kind, Key: key}, Rule: rule})
		}
		slices.SortFunc(entries[start:], func(a, b Entry) int {
			return cmp.Compare(a.Key, b.Key)
		})
	}
	return entries
}

// Switches lists the switches in the order of Entries.
func (s *Snapshot) Switches() []Switch {
	entries := s.Entries()
	switches := make([]Switch, len(entries))
	for i, entry := range entries {
		switches[i] = entry.Switch
	}
	return switches
}

// counts returns how many rules of kind are on and off.
func (s *Snapshot) counts(kind controller.Kind) (on, off int) {
	for _, rule := range s.set(kind) {
		if rule.IsOn() {
			on++
		} else {
			off++
		}
	}
	return on, off
}

// Change describes how one switch differs between two snapshots.
type Change struct {
	Switch
	On      bool
	Added   bool
	Removed bool
}

// Diff lists switches that appeared, disappeared or flipped between prev and next,
// in the order of next's entries followed by removed switches. A nil prev counts as empty.
func Diff(prev, next *Snapshot) []Change {
	if prev == nil {
		prev = &Snapshot{}
	}

	var changes []Change
	seen := make(map[Switch]bool)

	for _, entry := range next.Entries() {
		seen[entry.Switch] = true

		old, ok := prev.Rule(entry.Switch)
		switch {
		case !ok:
			changes = append(changes, Change{Switch: entry.Switch, On: entry.On(), Added: true})
		case old.IsOn() != entry.On():
			changes = append(changes, Change{Switch: entry.Switch, On: entry.On()})
		}
	}

	for _, entry := range prev.Entries() {
		if !seen[entry.Switch] {
			changes = append(changes, Change{Switch: entry.Switch, On: entry.On(), Removed: true})
		}
	}

	return changes
}
