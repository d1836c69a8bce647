// Command callrota-agent runs the forwarding orchestrator for one device:
// config and command feeds from Postgres, the apply loop, and the local HTTP surface
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"callrota/internal/modkit"
	"callrota/internal/modkit/module"
	"callrota/internal/platform/config"
	"callrota/internal/platform/logger"
	phttp "callrota/internal/platform/net/http"
	"callrota/internal/platform/net/middleware"
	"callrota/internal/platform/store"

	controlmod "callrota/internal/services/control/module"
	historymod "callrota/internal/services/history/module"
	lockmod "callrota/internal/services/lock/module"
	orchmod "callrota/internal/services/orchestrator/module"
)

func main() {
	fMode := flag.String("mode", "run", "agent mode: run | migrate")
	fEnv := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// a missing file is fine; real deployments set the environment directly
	_ = godotenv.Load(*fEnv)
	logger.Init(logger.FromEnv())
	l := logger.Get()

	root := config.New()
	agentCfg := root.Prefix("CALLROTA_")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromConfig(root, orchmod.ServiceName), store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if st.PG == nil {
		l.Fatal().Msg("SERVICE_PGSQL_DBURL is required: the control plane lives in postgres")
	}

	deps := modkit.FromStore(root, st)
	control := controlmod.Register(deps)
	lock := lockmod.Register(deps)
	history := historymod.New(deps)

	if *fMode == "migrate" {
		if err := control.Migrate(ctx); err != nil {
			l.Fatal().Err(err).Msg("control migrate failed")
		}
		if err := history.Migrate(ctx); err != nil {
			l.Fatal().Err(err).Msg("history migrate failed")
		}
		l.Info().Bool("history", history.Enabled()).Msg("migrations applied")
		return
	}

	cp := module.MustPortsOf[controlmod.Ports](control)
	lp := module.MustPortsOf[lockmod.Ports](lock)
	hp := module.MustPortsOf[historymod.Ports](history)

	orch, err := orchmod.Register(deps, modkit.WithPorts(orchmod.Uses{
		Control: cp.Agent,
		Lock:    lp.Lock,
		History: hp.Sink,
	}))
	if err != nil {
		l.Fatal().Err(err).Msg("orchestrator wiring failed")
	}

	origins := agentCfg.MayCSV("CORS_ORIGINS", []string{"*"})
	slow := agentCfg.MayDuration("HTTP_SLOW", 500*time.Millisecond)
	srv := phttp.NewServer(agentCfg, func(m *chi.Mux) { m.Use(middleware.Defaults(slow, origins)...) })
	orch.MountRoutes(srv.Router())
	phttp.MountProfiler(srv.Router(), "/debug", agentCfg.MayBool("PROFILER", false))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return orch.Run(gctx) })
	g.Go(func() error { return history.Run(gctx) })

	if err := g.Wait(); err != nil {
		l.Fatal().Err(err).Msg("agent stopped")
	}
	l.Info().Msg("agent stopped")
}
