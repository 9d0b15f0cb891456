package tenant

import "time"

// Status is the lifecycle state of a tenant.
type Status string

const (
	// StatusPendingActivation marks a registered tenant whose schema has not
	// been provisioned yet.
	StatusPendingActivation Status = "pending_activation"
	// StatusActive marks a tenant whose schema exists and is fully migrated.
	StatusActive Status = "active"
	// StatusInactive marks a deactivated tenant. Rows are never hard-deleted.
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingActivation, StatusActive, StatusInactive:
		return true
	}
	return false
}

// Tenant is a registered organizational boundary with its own database schema.
type Tenant struct {
	ID        string
	Name      string
	Schema    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
