// Package session holds the configuration collected for one tool-generation
// session: the organization name, the API base URL, and the Swagger/OpenAPI
// document. A Session is an explicit value passed to every operation that
// needs it; nothing in this package is process-global, so independent
// sessions coexist safely.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// Configuration is the set of values required before synthesis can run.
type Configuration struct {
	OrgName     string `json:"orgName"`
	BaseURL     string `json:"baseUrl"`
	SwaggerSpec string `json:"swaggerSpec"`
}

// Complete reports whether every field is non-empty after trimming
// leading and trailing whitespace.
func (c Configuration) Complete() bool {
	return len(c.Missing()) == 0
}

// Missing returns the logical names of fields that are empty or
// whitespace-only, in a fixed order.
func (c Configuration) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.OrgName) == "" {
		missing = append(missing, "org_name")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(c.SwaggerSpec) == "" {
		missing = append(missing, "swagger_spec")
	}
	return missing
}

// Checksum returns a hex SHA-256 over the three fields. Each field is
// length-prefixed so that distinct configurations never collide by
// concatenation.
func (c Configuration) Checksum() string {
	h := sha256.New()
	for _, f := range []string{c.OrgName, c.BaseURL, c.SwaggerSpec} {
		fmt.Fprintf(h, "%d:%s", len(f), f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Session owns one mutable Configuration. Setters overwrite unconditionally
// and never fail; each assignment is atomic under the session mutex, but
// callers needing consistency across all three fields must serialize their
// own setter calls before validating (last write wins).
type Session struct {
	mu  sync.RWMutex
	cfg Configuration
}

// New returns an empty Session in which no field has been set.
func New() *Session {
	return &Session{}
}

// SetOrgName overwrites the organization name. Accepts any string,
// including empty.
func (s *Session) SetOrgName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.OrgName = v
}

// SetBaseURL overwrites the API base URL. Accepts any string, including
// empty; format checking is deferred to synthesis.
func (s *Session) SetBaseURL(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.BaseURL = v
}

// SetSwaggerSpec overwrites the Swagger/OpenAPI document. Accepts any
// string, including empty; the document is not parsed here.
func (s *Session) SetSwaggerSpec(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SwaggerSpec = v
}

// Validate reports whether every field is non-empty after trimming. It is a
// pure query of the current configuration and never mutates the session.
func (s *Session) Validate() bool {
	return s.Snapshot().Complete()
}

// Missing returns the logical names of unset fields for the current
// configuration.
func (s *Session) Missing() []string {
	return s.Snapshot().Missing()
}

// Snapshot returns a consistent copy of the current configuration.
func (s *Session) Snapshot() Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}
