// Package communities implements community creation and membership, the flows
// that trigger default-role bootstrap and default-role assignment.
package communities

import "time"

// Community represents one community on the instance.
type Community struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}
