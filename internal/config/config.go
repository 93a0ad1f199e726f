// Package config loads and validates curia.yml, the governance policy file.
// Runtime process settings (Redis address, listen address) come from the
// environment instead; see cmd/curiad.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/curiahq/curia/internal/policy"
)

// GovernanceConfig specifies the voting and resubmission policy.
type GovernanceConfig struct {
	MinQuorum     int `yaml:"min_quorum,omitempty"`      // Ballots required before any decision (default 5)
	ApprovePct    int `yaml:"approve_pct,omitempty"`     // Approve at >= this yes percentage (default 60)
	RejectPct     int `yaml:"reject_pct,omitempty"`      // Reject at > this no percentage (default 40)
	CooldownDays  int `yaml:"cooldown_days,omitempty"`   // Days before a rejected member may resubmit (default 7)
	MinProofLinks int `yaml:"min_proof_links,omitempty"` // Artifacts required to submit (default 1)
}

// Config represents the top-level curia.yml configuration.
//
// Role identifiers for the chat platform are configured here as an opaque
// mapping; nothing in the core references a numeric platform ID directly.
type Config struct {
	Version       string            `yaml:"version"`
	Governance    GovernanceConfig  `yaml:"governance,omitempty"`
	Roles         map[string]string `yaml:"roles"`          // semantic role name -> platform role ID
	Ladder        []string          `yaml:"ladder"`         // promotion order, lowest first
	ReviewerRoles []string          `yaml:"reviewer_roles"` // roles allowed to approve/reject submissions
}

// Validate performs strict validation on the configuration and applies
// defaults for omitted governance values.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if len(c.Roles) == 0 {
		return fmt.Errorf("no roles defined")
	}

	if len(c.Ladder) < 2 {
		return fmt.Errorf("ladder must list at least two roles, got %d", len(c.Ladder))
	}

	seen := make(map[string]bool)
	for _, role := range c.Ladder {
		if _, ok := c.Roles[role]; !ok {
			return fmt.Errorf("ladder role '%s' has no entry in roles", role)
		}
		if seen[role] {
			return fmt.Errorf("duplicate ladder role '%s'", role)
		}
		seen[role] = true
	}

	if len(c.ReviewerRoles) == 0 {
		return fmt.Errorf("no reviewer_roles defined")
	}
	for _, role := range c.ReviewerRoles {
		if _, ok := c.Roles[role]; !ok {
			return fmt.Errorf("reviewer role '%s' has no entry in roles", role)
		}
	}

	// Apply governance defaults for omitted values
	if c.Governance.MinQuorum == 0 {
		c.Governance.MinQuorum = 5
	}
	if c.Governance.ApprovePct == 0 {
		c.Governance.ApprovePct = 60
	}
	if c.Governance.RejectPct == 0 {
		c.Governance.RejectPct = 40
	}
	if c.Governance.CooldownDays == 0 {
		c.Governance.CooldownDays = 7
	}
	if c.Governance.MinProofLinks == 0 {
		c.Governance.MinProofLinks = 1
	}

	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid governance thresholds: %w", err)
	}

	if c.Governance.CooldownDays < 0 {
		return fmt.Errorf("cooldown_days must be >= 0, got %d", c.Governance.CooldownDays)
	}

	return nil
}

// Thresholds returns the tally evaluation parameters.
func (c *Config) Thresholds() policy.Thresholds {
	return policy.Thresholds{
		MinQuorum:  c.Governance.MinQuorum,
		ApprovePct: c.Governance.ApprovePct,
		RejectPct:  c.Governance.RejectPct,
	}
}

// Cooldown returns the resubmission waiting period.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Governance.CooldownDays) * 24 * time.Hour
}

// NextRole returns the ladder role above current, or false when current is
// already the top of the ladder or not on it at all.
func (c *Config) NextRole(current string) (string, bool) {
	for i, role := range c.Ladder {
		if role == current {
			if i+1 < len(c.Ladder) {
				return c.Ladder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// IsReviewer reports whether any of the given role names carries the
// reviewer capability.
func (c *Config) IsReviewer(roles []string) bool {
	for _, held := range roles {
		for _, reviewer := range c.ReviewerRoles {
			if held == reviewer {
				return true
			}
		}
	}
	return false
}

// RoleID resolves a semantic role name to its platform identifier.
func (c *Config) RoleID(role string) (string, bool) {
	id, ok := c.Roles[role]
	return id, ok
}

// Load reads and validates curia.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
