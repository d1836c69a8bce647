// Command callrota-console is the operator console for the forwarding rotation
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"callrota/internal/console"
	"callrota/internal/modkit"
	"callrota/internal/modkit/module"
	"callrota/internal/platform/config"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	"callrota/internal/platform/store"

	controlmod "callrota/internal/services/control/module"
	lockmod "callrota/internal/services/lock/module"
)

func main() {
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())

	root := config.New()
	c := root.Prefix("CALLROTA_")

	var st *store.Store
	app := &console.App{
		Zone:    c.MayLocation("ZONE", "Europe/Madrid"),
		LockTTL: c.MayDuration("LOCK_TTL", 0),
		Connect: func(ctx context.Context, a *console.App) error {
			var err error
			st, err = store.Open(ctx, store.FromConfig(root, "callrota-console"), store.WithLogger(*logger.Get()))
			if err != nil {
				return err
			}
			if st.PG == nil {
				return perr.Unavailablef("SERVICE_PGSQL_DBURL is not set")
			}
			deps := modkit.FromStore(root, st)
			a.Control = module.MustPortsOf[controlmod.Ports](controlmod.New(deps)).Console
			a.Lock = module.MustPortsOf[lockmod.Ports](lockmod.New(deps)).Lock
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := console.RootCmd(app).ExecuteContext(ctx)
	stop()
	if st != nil {
		_ = st.Close(context.Background())
	}
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}
