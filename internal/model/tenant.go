package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanLimits records a Tenant's resource limits. The values are stored
// and loaded with the Tenant; no ingestion or query path checks them.
type PlanLimits struct {
	MaxDocuments    int
	MaxMonthlyQueries int
}

// Tenant owns every Property, Document, Conversation, and User in its
// namespace. Created and updated by an out-of-scope admin path; stayfly
// only reads Tenant rows.
type Tenant struct {
	ID         uuid.UUID
	Slug       string
	PlanLimits PlanLimits
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// User belongs to exactly one Tenant and carries the Role that governs
// every visibility decision made on its behalf.
type User struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Role        Role
	Preferences map[string]any
	CreatedAt   time.Time
}
