package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTenantKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Wyndham", "wyndham"},
		{"Hobsons Bay", "hobsons_bay"},
		{"  Port   Phillip ", "port_phillip"},
		{"MELBOURNE", "melbourne"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTenantKey(tt.name))
	}
}

func TestValidateTenantKey(t *testing.T) {
	for _, key := range []string{"wyndham", "hobsons_bay", "a1", "x"} {
		assert.NoError(t, ValidateTenantKey(key), key)
	}
	for _, key := range []string{"", "Hobsons Bay", "../evil", "a/b", "_leading", "UPPER"} {
		assert.Error(t, ValidateTenantKey(key), key)
	}
}

func TestDefaultCouncilsHaveValidKeys(t *testing.T) {
	councils := DefaultCouncils()
	require.Len(t, councils, 10)
	for _, c := range councils {
		assert.NoError(t, ValidateTenantKey(c.Key), c.Name)
		assert.Equal(t, NormalizeTenantKey(c.Name), c.Key)
		assert.True(t, ValidPlan(c.Plan))
	}
}
