package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"atrium-jazz/internal/auth"
	"atrium-jazz/internal/config"
	"atrium-jazz/internal/database"
	"atrium-jazz/internal/database/migrations"
	"atrium-jazz/internal/ingest"
	"atrium-jazz/internal/kafka"
	"atrium-jazz/internal/logger"
	"atrium-jazz/internal/runlock"
	"atrium-jazz/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

type app struct {
	cfg *config.Config
	log *logger.Logger

	year        int
	forceYear   bool
	metricsAddr string
}

func main() {
	a := &app{}
	root := a.rootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	switch {
	case err != nil && a.log != nil:
		a.log.Error("INGEST", err.Error())
	case err != nil:
		fmt.Fprintln(os.Stderr, "ingest:", err)
	}
	if a.log != nil {
		a.log.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Load scraped event pages and artist profiles into the calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), a.cfg.Ingest.EventsFile, a.cfg.Ingest.ArtistsFile)
		},
	}

	root.PersistentFlags().IntVar(&a.year, "year", 0, "Year for MM-DD dates (default: INGEST_TARGET_YEAR or the current year)")
	root.PersistentFlags().BoolVar(&a.forceYear, "force-year", false, "Rewrite the year of every date, including full YYYY-MM-DD dates")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9102)")

	root.AddCommand(a.eventsCmd(), a.artistsCmd(), a.allCmd(), a.migrateCmd(), a.adminTokenCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.year > 0 {
		cfg.Ingest.TargetYear = a.year
	}
	if cmd.Flags().Changed("force-year") {
		cfg.Ingest.ForceYear = a.forceYear
	}
	a.cfg = cfg

	log, err := logger.New(logger.Options{
		Dir:      cfg.LogDir,
		Name:     "ingest",
		MinLevel: logger.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) eventsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Ingest event pages (NDJSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.Ingest.EventsFile
			}
			return a.run(cmd.Context(), file, "")
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Event pages file (default: EVENTS_FILE)")
	return cmd
}

func (a *app) artistsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "artists",
		Short: "Ingest artist profiles (NDJSON) and link them to stored events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.Ingest.ArtistsFile
			}
			return a.run(cmd.Context(), "", file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Artist profiles file (default: ARTISTS_FILE)")
	return cmd
}

func (a *app) allCmd() *cobra.Command {
	var eventsFile, artistsFile string
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Ingest event pages, then artist profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventsFile == "" {
				eventsFile = a.cfg.Ingest.EventsFile
			}
			if artistsFile == "" {
				artistsFile = a.cfg.Ingest.ArtistsFile
			}
			return a.run(cmd.Context(), eventsFile, artistsFile)
		},
	}
	cmd.Flags().StringVar(&eventsFile, "events", "", "Event pages file (default: EVENTS_FILE)")
	cmd.Flags().StringVar(&artistsFile, "artists", "", "Artist profiles file (default: ARTISTS_FILE)")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withMigrations(cmd.Context(), (*migrations.Runner).MigrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withMigrations(cmd.Context(), (*migrations.Runner).MigrateDown)
			},
		},
		&cobra.Command{
			Use:   "to <version>",
			Short: "Migrate up or down to a specific schema version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return a.withMigrations(cmd.Context(), func(r *migrations.Runner) error {
					return r.MigrateTo(uint(version))
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withMigrations(cmd.Context(), func(r *migrations.Runner) error {
					version, dirty, err := r.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withMigrations(ctx context.Context, fn func(*migrations.Runner) error) error {
	bunDB, err := database.Connect(ctx, a.cfg.Database, a.log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, a.log)
	defer runner.Close()
	return fn(runner)
}

func (a *app) adminTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint a bearer token for the admin API (requires ADMIN_JWT_SECRET)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Admin.JWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET not set")
			}
			token, err := auth.NewHMACVerifier(a.cfg.Admin.JWTSecret).Issue(subject, ttl)
			if err != nil {
				return err
			}
			a.log.LogSecurity("TOKEN_ISSUED", fmt.Sprintf("subject=%s ttl=%s", subject, ttl))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

// run ingests eventsFile then artistsFile; an empty name skips that pass.
func (a *app) run(ctx context.Context, eventsFile, artistsFile string) error {
	bunDB, err := database.Connect(ctx, a.cfg.Database, a.log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if a.cfg.Database.AutoMigrate {
		// closing the runner closes the shared *sql.DB, so it lives as long as bunDB
		runner := migrations.NewRunner(bunDB, a.log)
		defer runner.Close()
		if err := runner.MigrateUp(); err != nil {
			return err
		}
	}

	if a.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
		defer client.Close()

		lock := runlock.New(client, a.cfg.Redis.LockTTL)
		if err := lock.Acquire(ctx); err != nil {
			if errors.Is(err, runlock.ErrHeld) {
				holder, _ := lock.Holder(ctx)
				return fmt.Errorf("%w (holder %s)", err, holder)
			}
			return err
		}
		a.log.Info("REDIS", "acquired ingestion run lock")
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				a.log.Warn("REDIS", fmt.Sprintf("release run lock: %v", err))
			}
		}()
	}

	registry := prometheus.NewRegistry()
	metrics, err := ingest.NewMetrics(registry)
	if err != nil {
		return err
	}
	if a.metricsAddr != "" {
		srv := a.serveMetrics(registry)
		defer srv.Close()
	}

	opts := ingest.Options{
		Dates:   ingest.DateOptions{Year: a.cfg.Ingest.TargetYear, ForceYear: a.cfg.Ingest.ForceYear},
		Metrics: metrics,
	}
	if a.cfg.Kafka.Enabled {
		topics := []string{a.cfg.Kafka.Topics.EventUpserted, a.cfg.Kafka.Topics.IngestCompleted}
		if err := kafka.EnsureTopicsExist(ctx, a.cfg.Kafka.Brokers, topics, a.log); err != nil {
			a.log.Warn("KAFKA", fmt.Sprintf("ensure topics: %v", err))
		}
		producer := kafka.NewProducer(a.cfg.Kafka.Brokers, topics[0], topics[1], a.log)
		defer producer.Close()
		opts.Publisher = producer
	}

	db := store.New(bunDB)
	pipeline := ingest.NewPipeline(db, a.log, opts)

	if eventsFile != "" {
		if err := ingestFile(ctx, eventsFile, pipeline.IngestEvents); err != nil {
			return err
		}
	}
	if artistsFile != "" {
		if err := ingestFile(ctx, artistsFile, pipeline.IngestArtists); err != nil {
			return err
		}
	}

	return a.logCounts(ctx, bunDB)
}

func ingestFile(ctx context.Context, path string, pass func(context.Context, io.Reader) (*ingest.Stats, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := pass(ctx, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (a *app) serveMetrics(registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.metricsAddr, Handler: mux}
	go func() {
		a.log.Info("METRICS", fmt.Sprintf("metrics exposed at http://localhost%s/metrics", a.metricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Warn("METRICS", fmt.Sprintf("metrics server error: %v", err))
		}
	}()
	return srv
}

func (a *app) logCounts(ctx context.Context, bunDB *bun.DB) error {
	counts, err := store.New(bunDB).Counts(ctx)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	a.log.LogDatabase("COUNT", "all", fmt.Sprintf("venues=%d events=%d performers=%d lineups=%d artists=%d",
		counts.Venues, counts.Events, counts.Performers, counts.EventPerformers, counts.Artists))
	return nil
}
