package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/adapters/observability"
	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/shared"
	"tourism_occupancy/internal/storage/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		input  = flag.String("in", "", "JSON-lines file of historic questionnaires (default stdin)")
		seed   = flag.Bool("seed", false, "upsert the establishment embedded in each line before submitting")
		dryRun = flag.Bool("dry-run", false, "import into an in-memory database and report counts only")
	)
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	driver, sqlitePath := cfg.DBDriver, cfg.SQLitePath
	if *dryRun {
		driver, sqlitePath = "sqlite", ":memory:"
	}
	db, dialect, err := sqlstore.Connect(ctx, driver, cfg.MySQLDSN, sqlitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer db.Close()

	dir := sqlstore.NewDirectory(db, dialect)
	im := &importer{
		svc:     app.NewQuestionnaireService(sqlstore.New(db, dialect), dir),
		workers: cfg.BackfillWorkers,
		as:      domain.Principal{UserID: "backfill", SuperAdmin: true},
	}
	if *seed {
		im.seed = dir
	}

	in := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("open input")
		}
		defer f.Close()
		in = f
	}

	log.Info().
		Str("driver", dialect.Driver).
		Int("workers", cfg.BackfillWorkers).
		Bool("seed", *seed).
		Bool("dry_run", *dryRun).
		Msg("backfill starting")

	st, err := im.run(ctx, in)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int64("imported", st.Imported).
		Int64("conflicts", st.Conflicts).
		Int64("failed", st.Failed).
		Msg("backfill completed")
	if err != nil || st.Failed > 0 {
		os.Exit(1)
	}
}
