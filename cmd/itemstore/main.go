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

	"git.sr.ht/~jakintosh/itemstore/internal/api"
	"git.sr.ht/~jakintosh/itemstore/internal/config"
	"git.sr.ht/~jakintosh/itemstore/internal/database"
	"git.sr.ht/~jakintosh/itemstore/internal/identity"
	"git.sr.ht/~jakintosh/itemstore/internal/metrics"
	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	m := metrics.New()

	// sqlite holds local credentials even when items live in redis
	db, err := database.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	items := db.ItemStore()
	if cfg.ItemStore == config.StoreRedis {
		rdb, err := database.NewRedisStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		items = rdb.ItemStore()
	}

	var (
		provider identity.Provider
		source   tokens.KeySetSource
		apiOpts  = []api.Option{api.WithLogger(log), api.WithMetrics(m)}
	)
	switch cfg.IdentityProvider {
	case config.ProviderLocal:
		local, err := newLocalProvider(cfg, db, log)
		if err != nil {
			return err
		}
		provider, source = local, local
		apiOpts = append(apiOpts, api.WithJWKS(local.JWKSHandler()))
	default:
		provider = identity.NewCognitoClient(
			cfg.CognitoRegion,
			cfg.CognitoClientID,
			identity.WithCognitoLogger(log),
		)
		source = tokens.NewHTTPSource(
			cfg.KeySetURL(),
			tokens.WithAttemptTimeout(cfg.JWKSFetchTimeout),
			tokens.WithSourceLogger(log),
		)
	}

	cache := tokens.NewCache(cfg.JWKSCacheTTL, tokens.WithCacheLogger(log))
	if cfg.JWKSFile != "" {
		file := tokens.NewFileSource(cfg.JWKSFile, log)
		if err := file.Watch(ctx, func() { cache.Invalidate(cfg.Issuer()) }); err != nil {
			return fmt.Errorf("failed to watch '%s': %v", cfg.JWKSFile, err)
		}
		source = file
	}
	cache.Add(cfg.Issuer(), m.InstrumentSource(source))

	clientID := cfg.CognitoClientID
	if p, ok := provider.(*identity.LocalProvider); ok {
		clientID = p.ClientID()
	}
	verifier := tokens.NewVerifier(cache, tokens.Config{
		Issuer:   cfg.Issuer(),
		ClientID: clientID,
		Leeway:   cfg.TokenLeeway,
		Logger:   log,
	})

	svc := service.New(
		items,
		provider,
		service.WithAdminGroup(cfg.AdminGroup),
		service.WithLogger(log),
	)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.New(svc, verifier, apiOpts...).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", server.Addr),
			zap.String("issuer", cfg.Issuer()),
			zap.String("provider", cfg.IdentityProvider),
			zap.String("store", cfg.ItemStore),
		)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLocalProvider(
	cfg *config.Config,
	db *database.SQLiteStore,
	log *zap.Logger,
) (
	*identity.LocalProvider,
	error,
) {
	opts := []identity.LocalOption{
		identity.WithAdmins(cfg.AdminGroup, cfg.LocalAdmins...),
		identity.WithLocalLogger(log),
	}
	if cfg.LocalSigningKey != "" {
		key, err := identity.LoadSigningKey(cfg.LocalSigningKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, identity.WithSigningKey(key, "local-1"))
	}
	return identity.NewLocalProvider(db.CredentialStore(), cfg.Issuer(), opts...)
}
