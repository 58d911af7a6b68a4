package cli

import (
	"context"
	"os"

	"github.com/dirkdd/onevice/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	var logLevel string

	cmd := &cli.Command{
		Name:  "onevice",
		Usage: "Entertainment business intelligence agent backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				Value:       "info",
				Sources:     cli.EnvVars("ONEVICE_LOG_LEVEL"),
				Destination: &logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.SetDefault(logging.New(logLevel, os.Stderr))
			return logging.With(ctx, logging.Default()), nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			queryCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
