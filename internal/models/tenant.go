// Package models defines the core domain types shared across the service.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Tenant is one council's isolated document and knowledge space.
type Tenant struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Plan    Plan   `json:"plan"`
	DocsDir string `json:"docs_dir,omitempty"`
}

var tenantKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// NormalizeTenantKey derives the storage key for a council display name:
// lowercased, spaces collapsed into underscores. "Hobsons Bay" -> "hobsons_bay".
func NormalizeTenantKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.Join(strings.Fields(key), "_")
	return key
}

// ValidateTenantKey rejects keys that could escape the per-tenant namespace.
func ValidateTenantKey(key string) error {
	if !tenantKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid tenant key %q", key)
	}
	return nil
}

// DefaultCouncils is the built-in council roster.
func DefaultCouncils() []Tenant {
	names := []string{
		"Wyndham", "Brimbank", "Hobsons Bay", "Melbourne", "Yarra",
		"Moreland", "Darebin", "Boroondara", "Stonnington", "Port Phillip",
	}
	tenants := make([]Tenant, 0, len(names))
	for _, name := range names {
		tenants = append(tenants, Tenant{
			Key:  NormalizeTenantKey(name),
			Name: name,
			Plan: PlanBasic,
		})
	}
	return tenants
}
