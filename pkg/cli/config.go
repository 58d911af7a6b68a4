package cli

import (
	"context"
	"time"

	"github.com/dirkdd/onevice/pkg/adapter"
	"github.com/dirkdd/onevice/pkg/agent"
	"github.com/dirkdd/onevice/pkg/filter"
	"github.com/dirkdd/onevice/pkg/memory"
	"github.com/dirkdd/onevice/pkg/policy"
	"github.com/dirkdd/onevice/pkg/research"
	"github.com/dirkdd/onevice/pkg/supervisor"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Google Cloud
	project  string
	database string
	dataset  string
	bucket   string

	// Gemini
	geminiProject  string
	geminiLocation string

	// Research sources
	personEnrichURL  string
	companyEnrichURL string
	unionRatesURL    string
	researchAPIKey   string

	// Pipeline
	policyDir  string
	configPath string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "BigQuery dataset holding project and talent data",
			Value:       adapter.DefaultDatasetID,
			Sources:     cli.EnvVars("ONEVICE_DATASET_ID"),
			Destination: &cfg.dataset,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for filter audit records",
			Sources:     cli.EnvVars("ONEVICE_AUDIT_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego routing policies",
			Sources:     cli.EnvVars("ONEVICE_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to pipeline configuration YAML",
			Sources:     cli.EnvVars("ONEVICE_CONFIG"),
			Destination: &cfg.configPath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// researchFlags returns flags for external enrichment sources
func researchFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "person-enrichment-url",
			Usage:       "Base URL of the person enrichment API",
			Sources:     cli.EnvVars("ONEVICE_PERSON_ENRICHMENT_URL"),
			Destination: &cfg.personEnrichURL,
		},
		&cli.StringFlag{
			Name:        "company-enrichment-url",
			Usage:       "Base URL of the company enrichment API",
			Sources:     cli.EnvVars("ONEVICE_COMPANY_ENRICHMENT_URL"),
			Destination: &cfg.companyEnrichURL,
		},
		&cli.StringFlag{
			Name:        "union-rates-url",
			Usage:       "Base URL of the union rate card API",
			Sources:     cli.EnvVars("ONEVICE_UNION_RATES_URL"),
			Destination: &cfg.unionRatesURL,
		},
		&cli.StringFlag{
			Name:        "research-api-key",
			Usage:       "API key sent to the enrichment sources",
			Sources:     cli.EnvVars("ONEVICE_RESEARCH_API_KEY"),
			Destination: &cfg.researchAPIKey,
		},
	}
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	project := cfg.geminiProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.New("gemini-project is required")
	}
	return adapter.NewGemini(ctx, project, cfg.geminiLocation)
}

// newStore creates the Firestore-backed memory store
func (cfg *config) newStore(ctx context.Context, embedder memory.Embedder) (memory.Store, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}
	return memory.NewFirestore(ctx, cfg.project, cfg.database, embedder)
}

// newWarehouse creates the BigQuery adapter
func (cfg *config) newWarehouse(ctx context.Context) (adapter.Warehouse, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	return adapter.NewWarehouse(ctx, cfg.project, adapter.WithDataset(cfg.dataset))
}

// newResearch creates the research client with all configured sources
func (cfg *config) newResearch() *research.Client {
	var opts []research.HTTPSourceOption
	if cfg.researchAPIKey != "" {
		opts = append(opts, research.WithAPIKey("Authorization", "Bearer "+cfg.researchAPIKey))
	}

	var sources []research.Source
	for _, src := range []struct {
		name string
		url  string
	}{
		{agent.SourcePersonEnrichment, cfg.personEnrichURL},
		{agent.SourceCompanyEnrichment, cfg.companyEnrichURL},
		{agent.SourceUnionRates, cfg.unionRatesURL},
	} {
		if src.url == "" {
			continue
		}
		sources = append(sources, research.NewHTTPSource(src.name, src.url, opts...))
	}

	return research.New(sources)
}

// newFilter creates the security filter, with a storage audit sink when a
// bucket is configured
func (cfg *config) newFilter(ctx context.Context) (*filter.SecurityFilter, error) {
	if cfg.bucket == "" {
		return filter.New(nil), nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create audit storage")
	}
	return filter.New(filter.NewStorageSink(storage)), nil
}

// pipelineConfig loads the supervisor configuration overlay
func (cfg *config) pipelineConfig() (supervisor.Config, error) {
	if cfg.configPath == "" {
		return supervisor.DefaultConfig(), nil
	}
	return supervisor.LoadConfig(cfg.configPath)
}

// newSupervisor wires the full pipeline for the serve command
func (cfg *config) newSupervisor(ctx context.Context) (*supervisor.Supervisor, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	store, err := cfg.newStore(ctx, memory.NewGeminiEmbedder(gemini))
	if err != nil {
		return nil, err
	}

	warehouse, err := cfg.newWarehouse(ctx)
	if err != nil {
		return nil, err
	}

	secFilter, err := cfg.newFilter(ctx)
	if err != nil {
		return nil, err
	}

	var guard *policy.Guard
	if cfg.policyDir != "" {
		guard, err = policy.LoadGuard(ctx, cfg.policyDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load routing policies")
		}
	}

	pipeCfg, err := cfg.pipelineConfig()
	if err != nil {
		return nil, err
	}

	researchClient := cfg.newResearch()
	lookupTimeout := 5 * time.Second

	return supervisor.New(supervisor.Input{
		Agents: []agent.Agent{
			agent.NewSalesIntelligence(researchClient, lookupTimeout),
			agent.NewCaseStudy(warehouse, agent.DefaultCaseStudyLimit),
			agent.NewTalentDiscovery(warehouse, agent.DefaultTalentLimit),
			agent.NewBiddingSupport(researchClient, lookupTimeout),
		},
		Filter:    secFilter,
		Store:     store,
		Extractor: memory.NewGeminiExtractor(gemini),
		Guard:     guard,
		Config:    pipeCfg,
	})
}
