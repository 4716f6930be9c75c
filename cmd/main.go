package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"eventide/cmd/buildCFG"
	"eventide/internal/api/api"
	"eventide/internal/api/handler"
	"eventide/internal/auth"
	rabbitReader "eventide/internal/consumerWorker"
	"eventide/internal/live"
	"eventide/internal/mailer"
	"eventide/internal/rabbit"
	"eventide/internal/repo"
	"eventide/internal/service"
	"eventide/internal/storage"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	envFile := ""
	if _, err := os.Stat(".env"); err == nil {
		envFile = ".env"
	}
	if err := cfg.Load("config.yaml", envFile, "EVENTIDE"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.GetString("logging.level")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repository := openRepository(rootCtx, cfg, &log)

	filesCfg := buildCFG.BuildFilesConfig(cfg, &log)
	files, err := storage.NewLocal(filesCfg.Root, filesCfg.BaseURL, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare file storage")
	}

	authCfg, err := buildCFG.BuildAuthConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth config")
	}

	hub := live.NewHub(&log)
	mail := mailer.New(buildCFG.BuildMailConfig(cfg, &log), &log)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	deps := service.Deps{
		Repo:      repository,
		Log:       &log,
		Live:      hub,
		Files:     files,
		Mailer:    mail,
		Retry:     buildCFG.BuildRetryStrategy(cfg, &log),
		Image:     filesCfg.Image,
		PublicURL: serverCfg.PublicURL,
	}

	var (
		reader *rabbitReader.Reader
		inline *rabbitReader.Inline
		svc    service.Service
	)
	if rabbitCfg, ok := buildCFG.BuildRabbitConfig(cfg, &log); ok {
		rmq, err := rabbit.NewRabbit(rabbitCfg, &log)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()

		deps.Publisher = rabbit.NewPublisher(rmq, &log)
		svc = service.NewService(deps)
		reader = rabbitReader.NewReader(rmq, svc, &log)
		go reader.Start(workerCtx)
	} else {
		inline = rabbitReader.NewInline(workerCtx, &log)
		deps.Publisher = inline
		svc = service.NewService(deps)
		inline.Bind(svc)
	}

	authenticator := auth.New(repository, authCfg, auth.NewGoogleVerifier(authCfg.GoogleClientID), &log)
	app := api.NewRouters(&api.Routers{
		Handler:   handler.New(svc, authenticator, hub, &log),
		Tokens:    authenticator.Tokens(),
		Log:       &log,
		Mode:      serverCfg.Mode,
		FilesRoot: files.Root(),
		FilesURL:  files.BaseURL(),
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("Received shutdown signal. Initiating shutdown...")
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	if reader != nil {
		reader.Stop()
	}
	if inline != nil {
		inline.Wait()
	}
	log.Info().Msg("Shutdown complete")
}

// openRepository connects the configured database and applies pending
// migrations.
func openRepository(ctx context.Context, cfg *config.Config, log *zerolog.Logger) repo.Repository {
	dbCfg, err := buildCFG.BuildDBConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}

	var repository repo.Repository
	switch dbCfg.Driver {
	case "sqlite":
		db, err := repo.OpenSQLite(dbCfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite database")
		}
		repository, err = repo.New(db, repo.SQLite, log)
		if err != nil {
			log.Fatal().Msgf("failed to initialize repository: %v", err)
		}
	default:
		db, err := dbpg.New(dbCfg.MasterDSN, dbCfg.SlaveDSNs, dbCfg.Pool)
		if err != nil {
			log.Fatal().Msgf("failed to connect to DB: %v", err)
		}
		repository, err = repo.NewRepository(db, log)
		if err != nil {
			log.Fatal().Msgf("failed to initialize repository: %v", err)
		}
	}
	log.Info().Str("driver", dbCfg.Driver).Msg("Database connected successfully")

	if err := repository.MigrateUp(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")
	return repository
}
