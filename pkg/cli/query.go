package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/dirkdd/onevice/pkg/agent"
	"github.com/dirkdd/onevice/pkg/memory"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/stream"
	"github.com/dirkdd/onevice/pkg/supervisor"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func queryCommand() *cli.Command {
	var (
		cfg      config
		userID   string
		roleName string
		projects []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID for the session",
			Value:       "local-user",
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "role",
			Aliases:     []string{"r"},
			Usage:       "Role (leadership, director, salesperson, creative_director)",
			Required:    true,
			Destination: &roleName,
		},
		&cli.StringSliceFlag{
			Name:        "assigned-project",
			Usage:       "Project assigned to the user (repeatable)",
			Destination: &projects,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, researchFlags(&cfg)...)

	return &cli.Command{
		Name:  "query",
		Usage: "Interactive query session against a local in-memory pipeline",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			role, err := model.ParseRole(roleName)
			if err != nil {
				return err
			}

			sup, err := localSupervisor(ctx, &cfg)
			if err != nil {
				return err
			}

			claims := &model.AuthClaims{
				UserID:           userID,
				Role:             role,
				RawRole:          roleName,
				AssignedProjects: projects,
			}

			rl, err := readline.New("query> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize prompt")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Query session started as %s (%s). Type 'exit' to quit.\n", userID, role)

			for {
				line, err := rl.Readline()
				if err != nil {
					// io.EOF or readline.ErrInterrupt
					break
				}
				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				state := model.NewAgentState(claims, "local", "", line)

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " processing..."
				sp.Start()

				transport := &consoleTransport{out: c.Root().Writer}
				mgr := stream.NewManager(transport, stream.DefaultChunkSize)

				err = sup.Run(ctx, state, mgr)
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to process query")
				}
				fmt.Fprintln(c.Root().Writer)
			}

			fmt.Fprintf(c.Root().Writer, "\nQuery session completed\n")
			return nil
		},
	}
}

// localSupervisor builds a pipeline with an in-memory store and a
// deterministic embedder, suitable for running without cloud credentials.
func localSupervisor(ctx context.Context, cfg *config) (*supervisor.Supervisor, error) {
	store := memory.NewInMemory(memory.NewLocalEmbedder())

	secFilter, err := cfg.newFilter(ctx)
	if err != nil {
		return nil, err
	}

	pipeCfg, err := cfg.pipelineConfig()
	if err != nil {
		return nil, err
	}

	researchClient := cfg.newResearch()
	lookupTimeout := 5 * time.Second

	agents := []agent.Agent{
		agent.NewSalesIntelligence(researchClient, lookupTimeout),
		agent.NewBiddingSupport(researchClient, lookupTimeout),
	}

	// BigQuery-backed agents join only when a project is configured.
	if cfg.project != "" {
		warehouse, err := cfg.newWarehouse(ctx)
		if err != nil {
			return nil, err
		}
		agents = append(agents,
			agent.NewCaseStudy(warehouse, agent.DefaultCaseStudyLimit),
			agent.NewTalentDiscovery(warehouse, agent.DefaultTalentLimit),
		)
	}

	return supervisor.New(supervisor.Input{
		Agents: agents,
		Filter: secFilter,
		Store:  store,
		Config: pipeCfg,
	})
}

// consoleTransport renders stream frames to the terminal.
type consoleTransport struct {
	out io.Writer
}

func (t *consoleTransport) Send(_ context.Context, msg any) error {
	switch m := msg.(type) {
	case model.ChunkMessage:
		fmt.Fprint(t.out, m.Content)
	case model.CompleteMessage:
		fmt.Fprintf(t.out, "\n\n[confidence %.2f, %d chunks, %dms]\n",
			m.FinalConfidence, m.TotalChunks, m.ProcessingTimeMS)
	}
	return nil
}
