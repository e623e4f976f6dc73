package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/okian/compass/internal/adapters/http/api"
	"github.com/okian/compass/internal/adapters/http/swagger"
	"github.com/okian/compass/internal/domain/model"
	"github.com/okian/compass/internal/seed"
	"github.com/okian/compass/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

type modelOutput struct {
	SampleSize   int                `json:"sample_size"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

func newModelOutput(m model.RegressionModel) modelOutput {
	return modelOutput{SampleSize: m.SampleSize, Intercept: m.Intercept, Coefficients: m.Named()}
}

func serveCommand(s *session) *cobra.Command {
	var preload bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if preload {
				if err := s.seedAndRefresh(ctx, seed.NewGenerator().Generate()); err != nil {
					return err
				}
			}
			return s.serve(ctx, preload)
		},
	}
	cmd.Flags().BoolVar(&preload, "seed", false, "load a synthetic history and refresh stats before serving")
	return cmd
}

// router wires the pipeline API and docs on one chi router.
func (s *session) router() http.Handler {
	r := chi.NewRouter()
	api.NewServer(s.svc, api.WithLogger(s.log.Named("http"))).Register(r)
	swagger.Register(r)
	return r
}

func (s *session) serve(ctx context.Context, seeded bool) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.log.Info(ctx, "starting HTTP server",
		logger.String("addr", s.cfg.Addr),
		logger.String("store", s.storeKind()),
		logger.Bool("seeded", seeded),
	)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	s.log.Info(ctx, "server stopped")
	return nil
}

func (s *session) storeKind() string {
	if s.cfg.DatabasePath != "" {
		return "sqlite"
	}
	return "memory"
}

func refreshCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Recompute the stats row of every historical event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.svc.RefreshStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func fitCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "fit",
		Short: "Fit a model from the current stats rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := s.svc.FitModel(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), newModelOutput(m))
		},
	}
}

func predictCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "predict <event-id>",
		Short: "Predict the outcome score of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.svc.Predict(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				model.Prediction
				Model modelOutput `json:"model"`
			}{p, newModelOutput(p.Model)})
		},
	}
}

func featuresCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "features <event-id>",
		Short: "Print the feature breakdown of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fv, err := s.svc.Features(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fv)
		},
	}
}

func seedCommand(s *session) *cobra.Command {
	var (
		past, planned int
		seedValue     uint64
		out           string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a synthetic event history",
		Long: `Generate a deterministic synthetic event history. With --out the dataset
is written as JSON for later import; otherwise it is saved into the store
and stats are refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds := seed.NewGenerator(
				seed.WithPastEvents(past),
				seed.WithPlannedEvents(planned),
				seed.WithSeed(seedValue),
			).Generate()
			if out != "" {
				return writeDataset(out, ds)
			}
			return s.seedAndRefresh(cmd.Context(), ds)
		},
	}
	cmd.Flags().IntVar(&past, "past", seed.DefaultPastEvents, "number of historical events")
	cmd.Flags().IntVar(&planned, "planned", seed.DefaultPlannedEvents, "number of planned events")
	cmd.Flags().Uint64Var(&seedValue, "seed", seed.DefaultSeed, "random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the dataset to this JSON file instead of the store")
	return cmd
}

func importCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import events from a JSON dataset and refresh stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			ds, err := seed.Decode(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return s.seedAndRefresh(cmd.Context(), ds)
		},
	}
}

// seedAndRefresh saves ds into the store and refreshes stats.
func (s *session) seedAndRefresh(ctx context.Context, ds seed.Dataset) error {
	if err := seed.Save(ctx, s.store, ds); err != nil {
		return err
	}
	res, err := s.svc.RefreshStats(ctx)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "events loaded",
		logger.Int("past", len(ds.PastEvents)),
		logger.Int("planned", len(ds.PlannedEvents)),
		logger.Int("upserted", res.Upserted),
		logger.Int("skipped", res.Skipped),
	)
	return nil
}

func writeDataset(path string, ds seed.Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return seed.Encode(f, ds)
}
