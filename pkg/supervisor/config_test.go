package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	gt.Equal(t, cfg.MaxRetries, 2)
	gt.Equal(t, cfg.EpisodeCeiling, 30*time.Second)
	gt.Equal(t, cfg.FallbackAgent, model.AgentSalesIntelligence)

	bidding := cfg.rule(model.AgentBiddingSupport)
	gt.Equal(t, bidding.RequiredFields, []string{"query", "claims", "role"})
	gt.Equal(t, bidding.MaxProcessing, 6*time.Second)

	// Unlisted agents get a permissive default budget.
	gt.Equal(t, cfg.rule("something_else").MaxProcessing, DefaultAgentBudget)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yml")
	overlay := `max_retries: 4
episode_ceiling: 45s
agents:
  bidding_support:
    required_fields: ["query", "claims"]
    max_processing: 10s
`
	gt.NoError(t, os.WriteFile(path, []byte(overlay), 0644))

	cfg, err := LoadConfig(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.MaxRetries, 4)
	gt.Equal(t, cfg.EpisodeCeiling, 45*time.Second)
	gt.Equal(t, cfg.rule(model.AgentBiddingSupport).MaxProcessing, 10*time.Second)

	// Defaults survive for values the overlay does not set.
	gt.Equal(t, cfg.PatternConfidence, DefaultPatternConfidence)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	gt.Error(t, err)
}
