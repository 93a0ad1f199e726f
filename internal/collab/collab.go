// Package collab defines the contracts for the external collaborators the
// governance core depends on - the messaging transport, the role granter
// and the direct notifier - together with the default implementations used
// by the daemon. The core only ever sees these interfaces; tests and other
// deployments substitute their own.
package collab

import "context"

// Messenger is the messaging transport used to open and update the
// parliament vote message. Both operations are treated as at-least-once:
// implementations must be safe to retry on transport failure, and a
// display-update failure never blocks the underlying state transition.
type Messenger interface {
	// SendVoteRequest posts a new vote message for the member and returns
	// an opaque handle identifying it for later updates.
	SendVoteRequest(ctx context.Context, memberID, content string) (handle string, err error)

	// UpdateMessage re-renders an existing vote message.
	UpdateMessage(ctx context.Context, handle, content string) error
}

// RoleGranter applies the promotion side effect. Implementations must be
// idempotent: granting a role the member already holds is a no-op success.
type RoleGranter interface {
	GrantRole(ctx context.Context, memberID, roleID string) error
}

// Notifier delivers a direct message to a member. Best-effort: callers log
// failures and never block a state transition on them.
type Notifier interface {
	Notify(ctx context.Context, memberID, message string) error
}
