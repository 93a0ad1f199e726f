package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Version: "1.0",
		Roles: map[string]string{
			"member":      "100",
			"contributor": "200",
			"veteran":     "300",
			"council":     "400",
		},
		Ladder:        []string{"member", "contributor", "veteran"},
		ReviewerRoles: []string{"council"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid config and applies defaults", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())

		assert.Equal(t, 5, cfg.Governance.MinQuorum)
		assert.Equal(t, 60, cfg.Governance.ApprovePct)
		assert.Equal(t, 40, cfg.Governance.RejectPct)
		assert.Equal(t, 7, cfg.Governance.CooldownDays)
		assert.Equal(t, 1, cfg.Governance.MinProofLinks)
		assert.Equal(t, 7*24*time.Hour, cfg.Cooldown())
	})

	t.Run("rejects wrong version", func(t *testing.T) {
		cfg := validConfig()
		cfg.Version = "2.0"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects ladder role missing from roles", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ladder = append(cfg.Ladder, "elder")
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "elder")
	})

	t.Run("rejects duplicate ladder role", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ladder = []string{"member", "contributor", "member"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects short ladder", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ladder = []string{"member"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects missing reviewer roles", func(t *testing.T) {
		cfg := validConfig()
		cfg.ReviewerRoles = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects out-of-range thresholds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Governance.ApprovePct = 150
		assert.Error(t, cfg.Validate())
	})
}

func TestNextRole(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	next, ok := cfg.NextRole("member")
	assert.True(t, ok)
	assert.Equal(t, "contributor", next)

	next, ok = cfg.NextRole("contributor")
	assert.True(t, ok)
	assert.Equal(t, "veteran", next)

	_, ok = cfg.NextRole("veteran")
	assert.False(t, ok, "top of ladder has no next role")

	_, ok = cfg.NextRole("council")
	assert.False(t, ok, "off-ladder role has no next role")
}

func TestIsReviewer(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.IsReviewer([]string{"member", "council"}))
	assert.False(t, cfg.IsReviewer([]string{"member", "veteran"}))
	assert.False(t, cfg.IsReviewer(nil))
}

func TestLoad(t *testing.T) {
	t.Run("loads valid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "curia.yml")
		content := `version: "1.0"
governance:
  min_quorum: 3
  cooldown_days: 14
roles:
  member: "100"
  contributor: "200"
  council: "400"
ladder:
  - member
  - contributor
reviewer_roles:
  - council
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Governance.MinQuorum)
		assert.Equal(t, 14, cfg.Governance.CooldownDays)
		assert.Equal(t, 60, cfg.Governance.ApprovePct, "default applied")
	})

	t.Run("fails on missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/curia.yml")
		assert.Error(t, err)
	})

	t.Run("fails on malformed YAML", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "curia.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: [unclosed"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
