package controller

import "context"

// ControllerAPI defines the rule operations of a controller client.
// It lets consumers substitute a mock in tests.
//
// Example usage with testify/mock:
//
//	type MockController struct {
//	    mock.Mock
//	}
//
//	func (m *MockController) ListTrafficRules(ctx context.Context) (controller.RuleSet, error) {
//	    args := m.Called(ctx)
//	    return args.Get(0).(controller.RuleSet), args.Error(1)
//	}
//
//nolint:revive // ControllerAPI reads better at call sites than controller.API
type ControllerAPI interface {
	// Authenticate logs in, trying the classic endpoint before the UniFi OS one.
	Authenticate(ctx context.Context) error

	// DisplayName returns the console name, or DefaultDisplayName when none is reported.
	DisplayName(ctx context.Context) (string, error)

	// ListTrafficRules fetches traffic rules keyed by description.
	ListTrafficRules(ctx context.Context) (RuleSet, error)

	// ListFirewallRules fetches firewall rules keyed by name.
	ListFirewallRules(ctx context.Context) (RuleSet, error)

	// SetTrafficRule switches a traffic rule to ALLOW (allow) or BLOCK.
	SetTrafficRule(ctx context.Context, key string, allow bool) error

	// SetFirewallRule switches a firewall rule to accept (allow) or drop.
	SetFirewallRule(ctx context.Context, key string, allow bool) error
}
