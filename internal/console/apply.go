package console

import (
	"fmt"

	"github.com/spf13/cobra"

	perr "callrota/internal/platform/errors"
	ctrl "callrota/internal/services/control/domain"
)

// ApplyNowCmd locks the devices and asks their agents to apply the current turn
func ApplyNowCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply-now",
		Short: "Apply the current turn on the devices now",
		Long: `Take the apply lock on every device, then write an APPLY_NOW command for each.

The lock is all or nothing: if any device is busy nothing is written.

Examples:
  callrota-console apply-now --as ops@example.com
  callrota-console apply-now --device rediris`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			ds, err := devices(cmd)
			if err != nil {
				return err
			}
			user, rid, err := a.writer(ctx)
			if err != nil {
				return err
			}
			lockID := "web-" + rid
			leases, err := a.acquireAll(ctx, ds, lockID, user)
			if err != nil {
				return err
			}

			now := a.now()
			for _, d := range ds {
				err := a.Control.PutCommand(ctx, ctrl.Command{
					DeviceID:    d,
					Action:      ctrl.ActionApplyNow,
					RequestID:   rid,
					LockID:      lockID,
					RequestedBy: user,
					RequestedAt: now,
				})
				if err != nil {
					a.releaseAll(ctx, out, leases)
					return perr.Wrapf(err, perr.CodeOf(err), "Error al enviar el comando a %s", d)
				}
			}
			if err := a.Control.AppendAudit(ctx, ctrl.AuditEntry{
				Type:      "COMANDO",
				Scope:     scope(ds),
				Action:    ctrl.ActionApplyNow,
				ActionES:  "Aplicar ahora",
				RequestID: rid,
				UserEmail: user,
				At:        now,
			}); err != nil {
				fmt.Fprintf(out, "%s auditoría no registrada: %v\n", warn.Sprint("!"), err)
			}

			fmt.Fprintf(out, "%s Comando enviado %s (lock %s)\n", ok.Sprint("✓"), rid, lockID)
			return nil
		},
	}
	devicesFlag(cmd)
	return cmd
}

// ForceNextCmd arms the force-next-turn override and the command that consumes it
func ForceNextCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "force-next",
		Short: "Skip to the next turn on the devices now",
		Long: `Take the apply lock on every device, arm the force-next-turn override
and write the paired APPLY_NOW command. The agent applies the contact of the
turn that starts at the next boundary and clears the override.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			ds, err := devices(cmd)
			if err != nil {
				return err
			}
			user, rid, err := a.writer(ctx)
			if err != nil {
				return err
			}
			tag, _ := cmd.Flags().GetString("tag")
			reason, _ := cmd.Flags().GetString("reason")

			lockID := "web-force-" + rid
			leases, err := a.acquireAll(ctx, ds, lockID, user)
			if err != nil {
				return err
			}
			req := ctrl.ForceRequest{RequestID: rid, LockID: lockID, RequestedBy: user, UITag: tag, UIReason: reason}
			for _, d := range ds {
				if err := a.Control.SetForceNextTurn(ctx, d, req); err != nil {
					a.releaseAll(ctx, out, leases)
					return perr.Wrapf(err, perr.CodeOf(err), "Error al forzar el siguiente turno en %s", d)
				}
			}
			if err := a.Control.AppendAudit(ctx, ctrl.AuditEntry{
				Type:      "OVERRIDE",
				Scope:     scope(ds),
				Action:    "FORCE_NEXT_TURN",
				ActionES:  "Forzar siguiente turno",
				RequestID: rid,
				UserEmail: user,
				At:        a.now(),
			}); err != nil {
				fmt.Fprintf(out, "%s auditoría no registrada: %v\n", warn.Sprint("!"), err)
			}

			fmt.Fprintf(out, "%s Siguiente turno forzado %s (comando %s)\n", ok.Sprint("✓"), rid, req.CommandID())
			return nil
		},
	}
	devicesFlag(cmd)
	cmd.Flags().String("tag", "FORZADO", "tag shown next to the forced target")
	cmd.Flags().String("reason", "Siguiente turno ahora", "reason shown next to the forced target")
	return cmd
}

// UnlockCmd releases a lock this operator holds
func UnlockCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Release an apply lock you hold",
		Long: `Release the apply lock on one device. The release only happens when both the
lock id and the holder match, so another operator's lock is never cleared.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			device, _ := cmd.Flags().GetString("device")
			lockID, _ := cmd.Flags().GetString("lock-id")
			user, err := a.identity()
			if err != nil {
				return err
			}
			if err := a.ports(ctx); err != nil {
				return err
			}

			released, err := a.Lock.Release(ctx, device, lockID, user)
			if err != nil {
				return perr.Wrapf(err, perr.CodeOf(err), "release %s", device)
			}
			if !released {
				fmt.Fprintf(out, "%s %s no liberado: el bloqueo no coincide con %s de %s\n", warn.Sprint("!"), device, lockID, user)
				return nil
			}
			if err := a.Control.AppendAudit(ctx, ctrl.AuditEntry{
				Type:      "BLOQUEO",
				Scope:     scope([]string{device}),
				Action:    "UNLOCK",
				ActionES:  "Liberar bloqueo",
				RequestID: lockID,
				UserEmail: user,
				At:        a.now(),
			}); err != nil {
				fmt.Fprintf(out, "%s auditoría no registrada: %v\n", warn.Sprint("!"), err)
			}
			fmt.Fprintf(out, "%s %s liberado\n", ok.Sprint("✓"), device)
			return nil
		},
	}
	cmd.Flags().String("device", "", "device to unlock")
	cmd.Flags().String("lock-id", "", "lock id to release")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("lock-id")
	return cmd
}
