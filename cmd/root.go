package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/compass/internal/adapters/repository"
	"github.com/okian/compass/internal/adapters/sqlstore"
	service "github.com/okian/compass/internal/app"
	"github.com/okian/compass/internal/config"
	"github.com/okian/compass/internal/domain/features"
	"github.com/okian/compass/internal/domain/outcome"
	"github.com/okian/compass/internal/domain/regression"
	"github.com/okian/compass/pkg/logger"
)

// pipelineStore is what every command needs from a backing store.
type pipelineStore interface {
	repository.EventSource
	repository.StatsStore
	repository.EventWriter
}

// session holds what PersistentPreRunE builds for the subcommands.
type session struct {
	cfg   *config.Config
	log   logger.Logger
	store pipelineStore
	svc   *service.Service
	close func() error
}

type rootFlags struct {
	dbPath   string
	logLevel string
}

// execute runs the CLI with args and releases the store afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var sess session
	root := newRootCommand(&sess)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, sess.teardown())
}

func newRootCommand(sess *session) *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "compass",
		Short:         "Event outcome scoring and prediction",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return sess.setup(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite database path (overrides database_path; empty keeps events in memory)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides log_level)")

	root.AddCommand(
		serveCommand(sess),
		refreshCommand(sess),
		fitCommand(sess),
		predictCommand(sess),
		featuresCommand(sess),
		seedCommand(sess),
		importCommand(sess),
	)
	return root
}

// setup loads config, then builds the logger, the store and the service.
func (s *session) setup(cmd *cobra.Command, flags rootFlags) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if flags.dbPath != "" {
		cfg.DatabasePath = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	s.cfg = cfg
	s.log = logger.Get()

	if cfg.DatabasePath != "" {
		st, err := sqlstore.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		s.store, s.close = st, st.Close
	} else {
		s.store, s.close = repository.NewMemoryStore(), func() error { return nil }
	}

	tables, err := cfg.Tables()
	if err != nil {
		return errors.Join(err, s.teardown())
	}
	s.svc = service.New(s.store, s.store,
		service.WithLogger(s.log.Named("service")),
		service.WithExtractor(features.NewExtractor(tables)),
		service.WithOutcomeScorer(outcome.New(cfg.ScorerOptions()...)),
		service.WithEngine(regression.New(cfg.EngineOptions()...)),
	)
	return nil
}

func (s *session) teardown() error {
	if s.close == nil {
		return nil
	}
	err := s.close()
	s.close = nil
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
