package supervisor

import (
	"os"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Default limits. All of them are overridable from the YAML limits file.
const (
	DefaultMaxRetries          = 2
	DefaultEpisodeCeiling      = 30 * time.Second
	DefaultAgentBudget         = 8 * time.Second
	DefaultPatternConfidence   = 0.8
	DefaultMemoryContextLimit  = 3
	DefaultClassifierThreshold = 1
)

// AgentRule bounds routing to one agent: the state fields that must be
// populated and the processing budget.
type AgentRule struct {
	RequiredFields []string
	MaxProcessing  time.Duration
}

// Config is the supervisor policy knobs with documented defaults.
type Config struct {
	MaxRetries          int
	EpisodeCeiling      time.Duration
	PatternConfidence   float64
	MemoryContextLimit  int
	ClassifierThreshold int
	FallbackAgent       model.AgentName
	Agents              map[model.AgentName]AgentRule
}

// UnmarshalYAML overlays the document on the values already present, so
// a partial limits file leaves the remaining defaults untouched.
// Durations are written as Go duration strings ("30s", "1m30s").
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawRule struct {
		RequiredFields []string `yaml:"required_fields"`
		MaxProcessing  string   `yaml:"max_processing"`
	}
	var raw struct {
		MaxRetries          *int               `yaml:"max_retries"`
		EpisodeCeiling      string             `yaml:"episode_ceiling"`
		PatternConfidence   *float64           `yaml:"pattern_confidence"`
		MemoryContextLimit  *int               `yaml:"memory_context_limit"`
		ClassifierThreshold *int               `yaml:"classifier_threshold"`
		FallbackAgent       string             `yaml:"fallback_agent"`
		Agents              map[string]rawRule `yaml:"agents"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.MaxRetries != nil {
		c.MaxRetries = *raw.MaxRetries
	}
	if raw.EpisodeCeiling != "" {
		d, err := time.ParseDuration(raw.EpisodeCeiling)
		if err != nil {
			return goerr.Wrap(err, "invalid episode_ceiling")
		}
		c.EpisodeCeiling = d
	}
	if raw.PatternConfidence != nil {
		c.PatternConfidence = *raw.PatternConfidence
	}
	if raw.MemoryContextLimit != nil {
		c.MemoryContextLimit = *raw.MemoryContextLimit
	}
	if raw.ClassifierThreshold != nil {
		c.ClassifierThreshold = *raw.ClassifierThreshold
	}
	if raw.FallbackAgent != "" {
		c.FallbackAgent = model.AgentName(raw.FallbackAgent)
	}

	if c.Agents == nil {
		c.Agents = make(map[model.AgentName]AgentRule, len(raw.Agents))
	}
	for name, rr := range raw.Agents {
		rule := c.Agents[model.AgentName(name)]
		if rr.RequiredFields != nil {
			rule.RequiredFields = rr.RequiredFields
		}
		if rr.MaxProcessing != "" {
			d, err := time.ParseDuration(rr.MaxProcessing)
			if err != nil {
				return goerr.Wrap(err, "invalid max_processing", goerr.V("agent", name))
			}
			rule.MaxProcessing = d
		}
		c.Agents[model.AgentName(name)] = rule
	}
	return nil
}

// DefaultConfig returns the built-in routing rules.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          DefaultMaxRetries,
		EpisodeCeiling:      DefaultEpisodeCeiling,
		PatternConfidence:   DefaultPatternConfidence,
		MemoryContextLimit:  DefaultMemoryContextLimit,
		ClassifierThreshold: DefaultClassifierThreshold,
		FallbackAgent:       model.AgentSalesIntelligence,
		Agents: map[model.AgentName]AgentRule{
			model.AgentSalesIntelligence: {
				RequiredFields: []string{"query", "claims"},
				MaxProcessing:  DefaultAgentBudget,
			},
			model.AgentCaseStudy: {
				RequiredFields: []string{"query", "claims"},
				MaxProcessing:  DefaultAgentBudget,
			},
			model.AgentTalentDiscovery: {
				RequiredFields: []string{"query", "claims"},
				MaxProcessing:  DefaultAgentBudget,
			},
			model.AgentBiddingSupport: {
				RequiredFields: []string{"query", "claims", "role"},
				MaxProcessing:  6 * time.Second,
			},
		},
	}
}

// LoadConfig overlays the YAML limits file on the defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, goerr.Wrap(err, "failed to read limits file", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, goerr.Wrap(err, "failed to parse limits file", goerr.V("path", path))
	}
	return cfg, nil
}

// rule returns the routing rule for an agent, with a permissive default
// for agents missing from the table.
func (c *Config) rule(name model.AgentName) AgentRule {
	if r, ok := c.Agents[name]; ok {
		return r
	}
	return AgentRule{MaxProcessing: DefaultAgentBudget}
}
