// Package app implements the umf command line: a line-delimited URP endpoint
// over stdin/stdout plus catalog and event log inspection.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/umf"
	"github.com/hupe1980/umf/event"
	"github.com/hupe1980/umf/eventlog"
	"github.com/hupe1980/umf/logging"
	"github.com/hupe1980/umf/router"
)

const maxRequestSize = 8 * 1024 * 1024

// New returns the root command.
func New() *cli.Command {
	return &cli.Command{
		Name:    "umf",
		Usage:   "universal message format operations and event logs",
		Version: router.DefaultCatalog().Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error", Sources: cli.EnvVars("UMF_LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: logging.FormatConsole, Usage: "json, text or console", Sources: cli.EnvVars("UMF_LOG_FORMAT")},
		},
		Commands: []*cli.Command{
			{
				Name:   "ops",
				Usage:  "list the supported operations",
				Action: listOperations,
			},
			{
				Name:   "serve",
				Usage:  "answer one JSON request per stdin line with one JSON response per stdout line",
				Action: serve,
			},
			{
				Name:      "check-log",
				Usage:     "validate a JSONL event log",
				ArgsUsage: "FILE (- for stdin)",
				Action:    checkLog,
			},
		},
	}
}

func newLogger(c *cli.Command) (logging.Logger, error) {
	level, err := logging.ParseLogLevel(c.String("log-level"))
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = level
	cfg.Format = c.String("log-format")
	cfg.Output = c.Root().ErrWriter
	cfg.Component = "cli"
	return logging.NewLogger(cfg), nil
}

func listOperations(_ context.Context, c *cli.Command) error {
	catalog := router.DefaultCatalog()
	w := c.Root().Writer
	for _, op := range catalog.Operations {
		if _, err := fmt.Fprintf(w, "%-28s %-10s %s\n", op.ID, op.Entity, op.Description); err != nil {
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, c *cli.Command) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	u := umf.New(func(o *umf.Options) {
		o.Logger = logger
	})

	scanner := bufio.NewScanner(c.Root().Reader)
	scanner.Buffer(make([]byte, 64*1024), maxRequestSize)
	out := bufio.NewWriter(c.Root().Writer)
	defer out.Flush()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp, err := u.HandleJSON([]byte(line))
		if err != nil {
			return err
		}
		if _, err := out.Write(append(resp, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read requests: %w", err)
	}
	return nil
}

func checkLog(_ context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("check-log expects exactly one FILE argument")
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	var r io.Reader
	if path := c.Args().First(); path == "-" {
		r = c.Root().Reader
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	store, err := eventlog.LoadInMemoryStore(r, func(o *eventlog.Options) {
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	envs, err := store.ReadAll()
	if err != nil {
		return err
	}

	var (
		tracker  event.StatusTracker
		sessions = map[string]struct{}{}
		last     uint64
	)
	for _, env := range envs {
		sessions[env.Header().SessionID] = struct{}{}
		last = env.Sequence
		if call, ok := env.AsToolCall(); ok {
			tracker.Record(call.ToolCall.ID, call.Status)
		}
	}

	w := c.Root().Writer
	if _, err := fmt.Fprintf(w, "events: %d\nsessions: %d\nlast sequence: %d\n", len(envs), len(sessions), last); err != nil {
		return err
	}
	if pending := tracker.Pending(); len(pending) > 0 {
		if _, err := fmt.Fprintf(w, "unfinished tool calls: %s\n", strings.Join(pending, ", ")); err != nil {
			return err
		}
	}
	return nil
}
