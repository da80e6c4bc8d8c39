package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/config"
	"github.com/creditohabitacao/leads-api/internal/db"
	"github.com/creditohabitacao/leads-api/internal/evo"
	"github.com/creditohabitacao/leads-api/internal/faq"
	"github.com/creditohabitacao/leads-api/internal/gestora"
	internalhttp "github.com/creditohabitacao/leads-api/internal/http"
	"github.com/creditohabitacao/leads-api/internal/lead"
	"github.com/creditohabitacao/leads-api/internal/mail"
	"github.com/creditohabitacao/leads-api/internal/session"
	"github.com/creditohabitacao/leads-api/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.StartupLogPath != "" {
		f, err := os.OpenFile(cfg.StartupLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("abrir log de arranque: %w", err)
		}
		defer f.Close()
		log.Logger = log.Output(zerolog.MultiLevelWriter(console, f))
	} else {
		log.Logger = log.Output(console)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	store, err := storage.New(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	sender := mail.NewSender(*cfg)
	evoClient := evo.New(cfg.EvoURL, cfg.EvoSecret)
	sessions := session.NewStore(redisClient, cfg.SessionTTL)

	gestoras := gestora.NewService(gestora.NewRepository(pool))
	leads := lead.NewService(lead.NewRepository(pool), gestoras, sender, store, cfg.GestoraEmail, log.Logger)
	faqs := faq.NewService(faq.NewRepository(pool), store, evoClient, log.Logger)

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:   cfg,
		Pool:     pool,
		Leads:    leads,
		Gestoras: gestoras,
		FAQ:      faqs,
		Sessions: sessions,
		Storage:  store,
		Evo:      evoClient,
		Mailer:   sender,
	})

	// Limpeza de documentos antigos em disco: uma passagem no arranque
	// e depois uma por dia.
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go func() {
		if err := store.CleanupOld(time.Now()); err != nil {
			log.Warn().Err(err).Msg("limpeza de documentos falhou")
		}
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if err := store.CleanupOld(time.Now()); err != nil {
					log.Warn().Err(err).Msg("limpeza de documentos falhou")
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
