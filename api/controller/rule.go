package controller

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
)

// Kind identifies the rule subsystem a rule belongs to.
type Kind string

const (
	// KindTraffic covers v2 traffic rules, keyed by description, action ALLOW or BLOCK.
	KindTraffic Kind = "traffic"
	// KindFirewall covers classic firewall rules, keyed by name, action accept or drop.
	KindFirewall Kind = "firewall"
)

// Traffic and firewall rule actions as the controller spells them.
const (
	ActionAllow  = "ALLOW"
	ActionBlock  = "BLOCK"
	ActionAccept = "accept"
	ActionDrop   = "drop"
)

// ParseKind maps a user supplied name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindTraffic, KindFirewall:
		return Kind(name), nil
	}
	return "", errors.Newf("unknown rule kind %q (want %q or %q)", name, KindTraffic, KindFirewall)
}

// KeyField returns the JSON member that names rules of this kind.
func (k Kind) KeyField() string {
	if k == KindFirewall {
		return "name"
	}
	return "description"
}

// Action returns the action value that represents the given on/off state.
func (k Kind) Action(on bool) string {
	switch {
	case k == KindFirewall && on:
		return ActionAccept
	case k == KindFirewall:
		return ActionDrop
	case on:
		return ActionAllow
	default:
		return ActionBlock
	}
}

// Rule is one controller rule. ID, Key and Action are decoded for convenience;
// every member of the original object is kept verbatim so a write sends the
// whole object back with only the action changed.
type Rule struct {
	Kind   Kind
	ID     string
	Key    string
	Action string

	fields map[string]json.RawMessage
}

// RuleSet indexes rules of one kind by key.
type RuleSet map[string]Rule

// IsOn reports whether the rule currently lets traffic through.
func (r Rule) IsOn() bool {
	return r.Action == r.Kind.Action(true)
}

// Field returns a copy of the raw JSON value of a member.
func (r Rule) Field(name string) (json.RawMessage, bool) {
	raw, ok := r.fields[name]
	if !ok {
		return nil, false
	}
	return bytes.Clone(raw), true
}

// FieldNames returns the members of the original object in sorted order.
func (r Rule) FieldNames() []string {
	return slices.Sorted(maps.Keys(r.fields))
}

// MarshalJSON emits the original object with the current action.
func (r Rule) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.fields)+2)
	maps.Copy(out, r.fields)

	if _, ok := out["_id"]; !ok && r.ID != "" {
		id, err := json.Marshal(r.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode rule id")
		}
		out["_id"] = id
	}

	action, err := json.Marshal(r.Action)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode rule action")
	}
	out["action"] = action

	//nolint:wrapcheck // encoding a map of raw messages only fails on invalid input already rejected above
	return json.Marshal(out)
}

// withAction returns a deep copy of the rule carrying a new action.
func (r Rule) withAction(action string) Rule {
	fields := make(map[string]json.RawMessage, len(r.fields))
	for name, raw := range r.fields {
		fields[name] = bytes.Clone(raw)
	}

	r.fields = fields
	r.Action = action

	return r
}

// decodeRule builds a Rule from a raw object. Objects whose key member is missing
// or not a JSON string are rejected.
func decodeRule(kind Kind, fields map[string]json.RawMessage) (Rule, bool) {
	key, ok := jsonString(fields[kind.KeyField()])
	if !ok {
		return Rule{}, false
	}

	rule := Rule{
		Kind:   kind,
		Key:    key,
		fields: fields,
	}

	// Non-string ids and actions decode as empty.
	rule.ID, _ = jsonString(fields["_id"])
	rule.Action, _ = jsonString(fields["action"])

	return rule, true
}

func jsonString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
