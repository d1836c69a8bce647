package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"callrota/internal/core/shift"
	perr "callrota/internal/platform/errors"
)

const stamp = "2006-01-02 15:04:05"

// StatusCmd prints one row per device
func StatusCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show device status and locks",
		Long: `Show the last status each agent reported and the state of its apply lock.

A device is busy while its status is running or its lock has not expired.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			ds, err := devices(cmd)
			if err != nil {
				return err
			}
			if err := a.ports(ctx); err != nil {
				return err
			}

			now := a.now()
			fmt.Fprintf(out, "%-12s %-8s %-22s %-12s %-22s %-22s %s\n", "DEVICE", "STATE", "RESULT", "TURNO", "TARGET", "NEXT", "LOCK")
			for _, d := range ds {
				st, err := a.Control.DeviceState(ctx, d)
				if err != nil {
					return perr.Wrapf(err, perr.CodeOf(err), "status %s", d)
				}
				s := st.Snapshot

				state := ok.Sprintf("%-8s", "idle")
				if st.Busy(now) {
					state = warn.Sprintf("%-8s", "busy")
				}
				next := s.NextTargetName
				if s.NextChangeAt > 0 {
					next = fmt.Sprintf("%s %s", next, time.UnixMilli(s.NextChangeAt).In(a.zone()).Format("Mon 15:04"))
				}
				lock := faint.Sprint("-")
				if st.Lock.Locked && st.Lock.ExpiresAt > now.UnixMilli() {
					left := time.UnixMilli(st.Lock.ExpiresAt).Sub(now).Round(time.Second)
					lock = warn.Sprintf("%s by %s (%s left)", st.Lock.LockID, st.Lock.LockedBy, left)
				}
				target := s.LastTargetName
				if s.Forced {
					target += " " + color.New(color.FgHiMagenta).Sprint("[forzado]")
				}
				fmt.Fprintf(out, "%-12s %s %s %-12s %-22s %-22s %s\n", d, state, resultColor(s.ResultCode).Sprintf("%-22s", s.ResultCode), s.Turno, target, next, lock)
				if s.Motivo != "" {
					fmt.Fprintf(out, "%-12s %s\n", "", faint.Sprint(s.Motivo))
				}
			}
			return nil
		},
	}
	devicesFlag(cmd)
	return cmd
}

func resultColor(code string) *color.Color {
	switch {
	case strings.HasPrefix(code, "FAIL"), strings.HasSuffix(code, "_FAIL"):
		return bad
	case code == "APPLY_OK" || code == "READY" || code == "REFRESH":
		return ok
	default:
		return warn
	}
}

// AuditCmd lists the latest console actions
func AuditCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the latest console actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			limit, _ := cmd.Flags().GetInt("limit")
			if err := a.ports(ctx); err != nil {
				return err
			}
			entries, err := a.Control.ListAudit(ctx, limit)
			if err != nil {
				return perr.Wrap(err, perr.CodeOf(err), "list audit")
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "Sin actividad")
				return nil
			}
			for _, e := range entries {
				action := e.ActionES
				if action == "" {
					action = e.Action
				}
				fmt.Fprintf(out, "%s  %-24s %-8s %-26s %s\n",
					faint.Sprint(e.At.In(a.zone()).Format(stamp)), e.Type, e.Scope, action, e.UserEmail)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "number of entries")
	return cmd
}

// PreviewCmd evaluates the stored schedule at an instant without applying anything
func PreviewCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show who would receive calls at an instant",
		Long: `Evaluate a device schedule at an instant and show the selected contact,
the shift, the rule that picked it and the next time the answer can change.

--at accepts RFC 3339 or "2006-01-02 15:04" in the rotation zone; default now.

Examples:
  callrota-console preview --device rediris
  callrota-console preview --device telefonica --at "2025-03-08 23:30"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			device, _ := cmd.Flags().GetString("device")
			atFlag, _ := cmd.Flags().GetString("at")
			at, err := a.parseAt(atFlag)
			if err != nil {
				return err
			}
			if err := a.ports(ctx); err != nil {
				return err
			}
			doc, err := a.Control.LoadConfig(ctx, device)
			if err != nil {
				return perr.Wrapf(err, perr.CodeOf(err), "config %s", device)
			}

			s := doc.Schedule()
			d := shift.SelectAt(s, at)
			if doc.Forced() {
				d = shift.SelectNext(s, at)
			}
			next := shift.NextBoundary(s, at)

			fmt.Fprintf(out, "%s %s  modo %s\n", device, at.Format("Mon "+stamp), d.Mode)
			if !d.HasTarget() {
				fmt.Fprintf(out, "  %s sin destino: falta la guardia N2\n", bad.Sprint("✗"))
			} else {
				fmt.Fprintf(out, "  destino   %s\n", a.contactName(cmd, d.TargetID, device))
			}
			fmt.Fprintf(out, "  turno     %s\n", d.Label.Display())
			fmt.Fprintf(out, "  regla     %s\n", d.Reason)
			if doc.Forced() {
				fmt.Fprintf(out, "  %s\n", warn.Sprint("forzado: se aplicará el siguiente turno"))
			}
			fmt.Fprintf(out, "  cambio    %s\n", next.Format("Mon "+stamp))
			return nil
		},
	}
	cmd.Flags().String("device", "rediris", "device whose schedule is evaluated")
	cmd.Flags().String("at", "", "instant to evaluate")
	return cmd
}

func (a *App) parseAt(v string) (time.Time, error) {
	if v == "" {
		return a.now().In(a.zone()), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(a.zone()), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", v, a.zone())
	if err != nil {
		return time.Time{}, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "cannot read %q as a time", v), "at")
	}
	return t, nil
}

// contactName prefers the label the device will dial, then the display name
func (a *App) contactName(cmd *cobra.Command, id, device string) string {
	c, err := a.Control.Resolve(cmd.Context(), id, device)
	if err != nil {
		return id + faint.Sprint(" (contacto desconocido)")
	}
	if l := c.LabelFor(device); l != "" {
		return fmt.Sprintf("%s (%s)", l, id)
	}
	return fmt.Sprintf("%s (%s) %s", c.DisplayName, id, warn.Sprint("sin etiqueta"))
}
