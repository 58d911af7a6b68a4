package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dirkdd/onevice/pkg/server"
	"github.com/dirkdd/onevice/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ONEVICE_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, researchFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the websocket query server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			sup, err := cfg.newSupervisor(ctx)
			if err != nil {
				return err
			}

			srv := server.New(addr, sup)

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Serve()
			}()

			select {
			case err := <-errCh:
				return err
			case <-sigCtx.Done():
				logging.From(ctx).Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}
