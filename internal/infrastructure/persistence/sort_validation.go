package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// BillingRecordSortFields contains allowed sort fields for billing records
var BillingRecordSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"billing_number":     true,
	"billing_date":       true,
	"due_date":           true,
	"total_amount_minor": true,
	"balance_minor":      true,
	"type":               true,
}

// PayoutSortFields contains allowed sort fields for physician payouts
var PayoutSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"payout_number":    true,
	"period_start":     true,
	"period_end":       true,
	"net_payout_minor": true,
	"status":           true,
}
