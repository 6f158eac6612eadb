// Package tenant holds the organization filter every leave query carries.
package tenant

import "gorm.io/gorm"

// Scope restricts a query to rows of one organization.
func Scope(organizationID string) func(db *gorm.DB) *gorm.DB {
	return ScopeColumn("organization_id", organizationID)
}

// ScopeColumn is Scope for queries where the bare column name is ambiguous,
// e.g. after joining leave types: ScopeColumn(`"LeaveType".organization_id`, id).
func ScopeColumn(column, organizationID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", organizationID)
	}
}
