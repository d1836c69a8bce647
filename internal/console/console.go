// Package console implements the operator CLI: it writes commands, overrides and
// schedule edits to the control plane and takes the same apply lock the agents use
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	perr "callrota/internal/platform/errors"
	ctrl "callrota/internal/services/control/domain"
	lockdom "callrota/internal/services/lock/domain"
)

// UserEnv names the identity used when --as is not given
const UserEnv = "CALLROTA_CONSOLE_USER"

const busyMessage = "Hay una aplicación en curso. No puedes pisarla."

// App carries what every command needs
type App struct {
	Control ctrl.ConsolePort
	Lock    lockdom.LockPort
	Zone    *time.Location
	Now     func() time.Time
	// LockTTL bounds console-held locks; zero means lockdom.DefaultTTL
	LockTTL time.Duration
	// Connect fills Control and Lock on first use; commands that only talk to an agent never call it
	Connect func(ctx context.Context, a *App) error

	user string
}

// requestID is "<unix ms>-<hex>"
var requestID = func(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex[:12])
}

// RootCmd builds the console command tree
func RootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "callrota-console",
		Short:         "Operator console for the call forwarding rotation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			as, _ := cmd.Flags().GetString("as")
			if as == "" {
				as = os.Getenv(UserEnv)
			}
			a.user = strings.TrimSpace(as)
			return nil
		},
	}
	root.PersistentFlags().String("as", "", "operator identity recorded as lock holder and in the audit log (default $"+UserEnv+")")

	root.AddCommand(
		ApplyNowCmd(a),
		ForceNextCmd(a),
		UnlockCmd(a),
		StatusCmd(a),
		AuditCmd(a),
		PreviewCmd(a),
		WatchCmd(a),
		ContactsCmd(a),
		ConfigCmd(a),
	)
	return root
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) zone() *time.Location {
	if a.Zone != nil {
		return a.Zone
	}
	return time.Local
}

func (a *App) ttl() time.Duration {
	if a.LockTTL > 0 {
		return a.LockTTL
	}
	return lockdom.DefaultTTL
}

// ports connects on first use
func (a *App) ports(ctx context.Context) error {
	if a.Control != nil && a.Lock != nil {
		return nil
	}
	if a.Connect == nil {
		return perr.Unavailablef("console is not connected to the control plane")
	}
	return a.Connect(ctx, a)
}

// identity is required by every command that writes
func (a *App) identity() (string, error) {
	if a.user == "" {
		return "", perr.WithField(perr.Newf(perr.ErrorCodeValidation, "set --as or $%s", UserEnv), "as")
	}
	return a.user, nil
}

// writer prepares a write command: connected ports, an identity and a fresh request id
func (a *App) writer(ctx context.Context) (user, rid string, err error) {
	if user, err = a.identity(); err != nil {
		return "", "", err
	}
	if err = a.ports(ctx); err != nil {
		return "", "", err
	}
	return user, requestID(a.now()), nil
}

// acquireAll takes the apply lock on every device or reports who holds it
func (a *App) acquireAll(ctx context.Context, devices []string, lockID, user string) ([]lockdom.Lease, error) {
	leases, err := a.Lock.AcquireAll(ctx, devices, lockdom.Request{
		LockID: lockID,
		Owner:  user,
		TTL:    a.ttl(),
		Status: &lockdom.Status{
			Status:     "running",
			ResultCode: "LOCKED_BY_WEB",
			Resultado:  "Aplicando...",
			Reason:     "Bloqueo preventivo (web)",
		},
	})
	var busy *lockdom.BusyError
	if errors.As(err, &busy) {
		who := busy.Holder.LockedBy
		if who == "" {
			who = "otro usuario"
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeBusy, "%s %s bloqueado por %s (%s)", busyMessage, busy.Resource, who, busy.Holder.LockID)
	}
	return leases, err
}

// releaseAll gives the locks back after a failed write; the TTL covers anything left over
func (a *App) releaseAll(ctx context.Context, w io.Writer, leases []lockdom.Lease) {
	for _, l := range leases {
		if _, err := a.Lock.Release(context.WithoutCancel(ctx), l.Resource, l.LockID, l.Owner); err != nil {
			fmt.Fprintf(w, "%s no se pudo liberar %s: %v\n", warn.Sprint("!"), l.Resource, err)
		}
	}
}

// scope is the audit scope: AMBOS for the default pair, else the device list
func scope(devices []string) string {
	if len(devices) == len(ctrl.Devices) {
		both := true
		for i, d := range devices {
			both = both && d == ctrl.Devices[i]
		}
		if both {
			return "AMBOS"
		}
	}
	return strings.ToUpper(strings.Join(devices, ","))
}

var (
	ok    = color.New(color.FgGreen)
	warn  = color.New(color.FgYellow)
	bad   = color.New(color.FgRed)
	faint = color.New(color.Faint)
)

func devicesFlag(cmd *cobra.Command) {
	cmd.Flags().StringSlice("device", ctrl.Devices, "devices to act on")
}

func devices(cmd *cobra.Command) ([]string, error) {
	ds, _ := cmd.Flags().GetStringSlice("device")
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, perr.WithField(perr.New(perr.ErrorCodeValidation, "at least one device is required"), "device")
	}
	return out, nil
}
