package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_TruthTable(t *testing.T) {
	tests := []struct {
		name    string
		org     string
		baseURL string
		spec    string
		valid   bool
		missing []string
	}{
		{
			name:    "all empty",
			valid:   false,
			missing: []string{"org_name", "base_url", "swagger_spec"},
		},
		{
			name:    "whitespace only counts as empty",
			org:     "   ",
			baseURL: "\t\n",
			spec:    " ",
			valid:   false,
			missing: []string{"org_name", "base_url", "swagger_spec"},
		},
		{
			name:    "spec missing",
			org:     "Acme",
			baseURL: "https://api.acme.com",
			valid:   false,
			missing: []string{"swagger_spec"},
		},
		{
			name:    "base url missing",
			org:     "Acme",
			spec:    "{}",
			valid:   false,
			missing: []string{"base_url"},
		},
		{
			name:    "org missing",
			baseURL: "https://api.acme.com",
			spec:    "{}",
			valid:   false,
			missing: []string{"org_name"},
		},
		{
			name:    "all set",
			org:     "Acme",
			baseURL: "https://api.acme.com",
			spec:    `{"openapi":"3.0.0"}`,
			valid:   true,
		},
		{
			name:    "surrounding whitespace still valid",
			org:     "  Acme  ",
			baseURL: " https://api.acme.com ",
			spec:    " {} ",
			valid:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.SetOrgName(tt.org)
			s.SetBaseURL(tt.baseURL)
			s.SetSwaggerSpec(tt.spec)

			assert.Equal(t, tt.valid, s.Validate())
			assert.Equal(t, tt.missing, s.Missing())
		})
	}
}

func TestSetters_LastWriteWins(t *testing.T) {
	s := New()
	s.SetOrgName("first")
	s.SetOrgName("second")
	s.SetOrgName("")
	s.SetOrgName("final")

	assert.Equal(t, "final", s.Snapshot().OrgName)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	s := New()
	s.SetOrgName("Acme")

	before := s.Snapshot()
	_ = s.Validate()
	_ = s.Validate()
	assert.Equal(t, before, s.Snapshot())
}

func TestChecksum_DistinguishesConfigurations(t *testing.T) {
	a := Configuration{OrgName: "ab", BaseURL: "c"}
	b := Configuration{OrgName: "a", BaseURL: "bc"}
	require.NotEqual(t, a.Checksum(), b.Checksum(),
		"length-prefixed hashing must not collide on concatenation")

	c := Configuration{OrgName: "ab", BaseURL: "c"}
	assert.Equal(t, a.Checksum(), c.Checksum())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New()
	s.SetOrgName("Acme")
	snap := s.Snapshot()
	s.SetOrgName("Other")

	assert.Equal(t, "Acme", snap.OrgName)
	assert.Equal(t, "Other", s.Snapshot().OrgName)
}
