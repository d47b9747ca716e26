package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/relaychat/internal/auth"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	applog "github.com/vovakirdan/relaychat/internal/log"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/service/messages"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/mongo"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/relaychat/internal/transport/http"
)

// Options overrides collaborators, mostly for tests. Zero values mean
// "build from config".
type Options struct {
	// Listener replaces binding cfg.Port.
	Listener net.Listener
	// Store replaces the store selected by cfg.DBDriver.
	Store store.Store
	// Exit terminates the process after a fatal startup error. Defaults to os.Exit.
	Exit func(code int)
}

// App wires together core and transport layers.
type App struct {
	cfg      config.Config
	server   *stdhttp.Server
	listener net.Listener
	hub      *core.Hub
	store    store.Store
	exit     func(int)
	log      *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger, opts Options) (*App, error) {
	st := opts.Store
	if st == nil {
		var err error
		st, err = newStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	hub := core.NewHub(m, logger)
	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:      hub,
		Auth:     authService,
		Messages: messages.New(st, hub, m, logger),
		Gatherer: reg,
	}, cfg, logger)

	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}

	return &App{
		cfg:      cfg,
		server:   server,
		listener: opts.Listener,
		hub:      hub,
		store:    st,
		exit:     exit,
		log:      logger,
	}, nil
}

func newStore(cfg config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		return mongo.New(cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverSQLite:
		return sqlite.New(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

// Run binds the listener, connects the store in the background and serves
// until ctx is cancelled. A port that is already taken is logged and Run
// waits for ctx instead of failing.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	if a.cfg.JWTSecret == "" {
		applog.Critical(a.log).Msg("JWT_SECRET is not set; sign-up and login will fail until it is configured")
	}

	ln := a.listener
	if ln == nil {
		var err error
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", a.cfg.Addr())
		if err != nil {
			if errors.Is(err, syscall.EADDRINUSE) {
				a.log.Error().Err(err).Int("port", a.cfg.Port).
					Msgf("port %d is already in use; stop the other process or set PORT", a.cfg.Port)
				<-ctx.Done()
				return nil
			}
			return fmt.Errorf("listen: %w", err)
		}
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(hubCtx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().
			Str("addr", ln.Addr().String()).
			Str("env", a.cfg.Env).
			Str("db_driver", a.cfg.DBDriver).
			Msg("starting relaychat server")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		connectCtx, cancel := context.WithTimeout(gctx, a.cfg.DBConnectTimeout)
		defer cancel()
		if err := a.store.Connect(connectCtx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			a.log.Error().Err(err).Str("db_driver", a.cfg.DBDriver).Msg("database connection failed")
			a.exit(1)
			return fmt.Errorf("connect store: %w", err)
		}
		a.log.Info().Str("db_driver", a.cfg.DBDriver).Msg("database connected")
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)
		// Open sockets are hijacked and not tracked by Shutdown; stopping the
		// hub closes their event channels so the handlers return.
		stopHub()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store == nil {
		return
	}
	closeDone := make(chan error, 1)
	go func() { closeDone <- a.store.Close() }()

	select {
	case err := <-closeDone:
		if err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
			return
		}
		a.log.Info().Msg("store closed")
	case <-time.After(a.cfg.ShutdownTimeout):
		a.log.Warn().Msg("timed out closing store")
	}
}
