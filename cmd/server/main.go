package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nestsocial/nest/backend/internal/models"
	"github.com/nestsocial/nest/backend/internal/router"
	"github.com/nestsocial/nest/backend/internal/seed"
	"github.com/nestsocial/nest/backend/internal/validators"
	"github.com/nestsocial/nest/backend/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:  "nest",
		Usage: "NEST feed and interaction API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				EnvVars: []string{"NEST_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the metrics endpoint",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create tables and indexes",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Replace all data with sample users and posts",
				Action: seedData,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg)
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.stores.mongoPosts != nil {
		if err := a.stores.mongoPosts.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure post indexes: %w", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e)

	verifier, provider := a.verifiers()
	deps := router.Dependencies{
		Posts:      a.posts,
		Ledger:     a.ledger,
		Feed:       a.feed,
		Users:      a.stores.users,
		Profiles:   a.profiles,
		Verifier:   verifier,
		Provider:   provider,
		Signer:     a.jwt,
		SessionTTL: cfg.SessionTTL,
		Env:        cfg.Env,
		Storage:    cfg.Storage,
	}
	router.SetupRoutes(e, deps)

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.HidePort = true
	metrics.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("Starting API server")
		return ignoreClosed(e.Start(":" + cfg.Port))
	})
	g.Go(func() error {
		log.WithField("port", cfg.MetricsPort).Info("Starting metrics server")
		return ignoreClosed(metrics.Start(":" + cfg.MetricsPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("Shutting down")
		return errors.Join(e.Shutdown(shutdownCtx), metrics.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := openStores(c.Context, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.db.Postgres != nil {
		if err := st.db.Postgres.AutoMigrate(&models.User{}); err != nil {
			return fmt.Errorf("failed to auto migrate models: %w", err)
		}
		log.Info("PostgreSQL auto-migrations completed.")
	}
	if st.mongoPosts != nil {
		if err := st.mongoPosts.EnsureIndexes(c.Context); err != nil {
			return fmt.Errorf("ensure post indexes: %w", err)
		}
		log.Info("MongoDB indexes ensured.")
	}
	return nil
}

func seedData(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := newApp(c.Context, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := seed.Run(c.Context, a.stores.posts, a.stores.users, a.posts, a.ledger)
	if err != nil {
		return err
	}

	fmt.Println("\nSample bearer tokens:")
	for _, u := range res.Users {
		token, err := a.jwt.Sign(u.ExternalID, u.Email, cfg.SessionTTL)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s %s\n", u.Username, token)
	}
	return nil
}
