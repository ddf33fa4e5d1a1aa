package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amazingshop/user-service/federated"
	"github.com/amazingshop/user-service/internal/config"
	"github.com/amazingshop/user-service/server"
	"github.com/amazingshop/user-service/session"
	"github.com/amazingshop/user-service/token"
	"github.com/amazingshop/user-service/users/sqliterepo"
	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return errors.Wrap(err, "[run] config.New")
	}
	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	displayAppname(cfg.GetAppName())

	if err := os.MkdirAll(filepath.Dir(cfg.GetDBPath()), 0o755); err != nil {
		return errors.Wrap(err, "[run] MkdirAll")
	}
	repo, err := sqliterepo.Open(cfg.GetDBPath())
	if err != nil {
		return errors.Wrap(err, "[run] sqliterepo.Open")
	}
	defer func() {
		_ = repo.Close()
	}()

	codec, err := token.NewCodec(
		cfg.GetJWTSecret(),
		cfg.GetJWTIssuer(),
		cfg.GetAccessTokenTTL(),
		cfg.GetRefreshTokenTTL(),
	)
	if err != nil {
		return errors.Wrap(err, "[run] token.NewCodec")
	}

	sessions, err := session.NewLifecycle(codec, repo, session.NewPasswordAuthenticator(repo))
	if err != nil {
		return errors.Wrap(err, "[run] session.NewLifecycle")
	}

	binder, err := federated.NewBinder(repo)
	if err != nil {
		return errors.Wrap(err, "[run] federated.NewBinder")
	}

	var verifier federated.IdentityVerifier
	if clientID := cfg.GetGoogleClientID(); clientID != "" {
		googleVerifier, err := federated.NewGoogleVerifier(context.Background(), clientID)
		if err != nil {
			return errors.Wrap(err, "[run] federated.NewGoogleVerifier")
		}
		verifier = googleVerifier
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID not set, federated login disabled")
	}

	srv, err := server.New(cfg, repo, sessions, codec, binder, verifier)
	if err != nil {
		return errors.Wrap(err, "[run] server.New")
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "[run] ListenAndServe")
	case <-stopSignal():
	}

	return shutdown(httpServer)
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "[shutdown] Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
