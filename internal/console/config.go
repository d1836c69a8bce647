package console

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callrota/internal/core/shift"
	perr "callrota/internal/platform/errors"
	ctrl "callrota/internal/services/control/domain"
)

// ConfigCmd groups the schedule editing commands
// every edit reads the stored schedule, changes one field and saves the whole view back
func ConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit device schedules",
		Long: `Show and edit the schedule of one device. A schedule cannot be saved
without an N2 guard.

Examples:
  callrota-console config show --device rediris
  callrota-console config set-n2 jefe --device rediris
  callrota-console config set-shift night nora --device telefonica
  callrota-console config set-mode OFFICE --device rediris`,
	}
	cmd.PersistentFlags().String("device", "rediris", "device whose schedule is edited")
	cmd.AddCommand(
		configShowCmd(a),
		configEditCmd(a, "set-n2 [contact-id]", "Set the mandatory N2 guard", func(in *ctrl.ConfigInput, v string) error {
			in.N2 = v
			return nil
		}),
		configShiftCmd(a),
		configEditCmd(a, "set-mode [NORMAL|OFFICE|HOLIDAY]", "Set the operating mode", func(in *ctrl.ConfigInput, v string) error {
			m, err := parseMode(v)
			in.Mode = m
			return err
		}),
	)
	return cmd
}

func parseMode(v string) (shift.Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "NORMAL":
		return shift.ModeNormal, nil
	case "OFFICE", "OFICINA":
		return shift.ModeOffice, nil
	case "HOLIDAY", "FESTIVO":
		return shift.ModeHoliday, nil
	}
	return "", perr.WithField(perr.Newf(perr.ErrorCodeValidation, "unknown mode %q", v), "mode")
}

func configShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			device, _ := cmd.Flags().GetString("device")
			if err := a.ports(ctx); err != nil {
				return err
			}
			doc, err := a.Control.LoadConfig(ctx, device)
			if err != nil {
				return perr.Wrapf(err, perr.CodeOf(err), "config %s", device)
			}
			printInput(cmd, device, ctrl.InputFrom(doc))
			if doc.Forced() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", warn.Sprint("forzado pendiente"), doc.Override.ForceRequestID)
			}
			return nil
		},
	}
}

func printInput(cmd *cobra.Command, device string, in ctrl.ConfigInput) {
	out := cmd.OutOrStdout()
	show := func(id string) string {
		if id == "" {
			return faint.Sprint("-")
		}
		return id
	}
	mode := in.Mode
	if mode == "" {
		mode = shift.ModeNormal
	}
	fmt.Fprintf(out, "%s  modo %s\n", device, mode)
	fmt.Fprintf(out, "  n2          %s\n", show(in.N2))
	fmt.Fprintf(out, "  morning     %s\n", show(in.Morning))
	fmt.Fprintf(out, "  intershift  %s\n", show(in.Intershift))
	fmt.Fprintf(out, "  afternoon   %s\n", show(in.Afternoon))
	fmt.Fprintf(out, "  night       %s\n", show(in.Night))
}

func configShiftCmd(a *App) *cobra.Command {
	return configEditCmd(a, "set-shift [morning|intershift|afternoon|night] [contact-id|none]", "Assign a shift slot",
		func(in *ctrl.ConfigInput, v string) error {
			slot, id, _ := strings.Cut(v, " ")
			if strings.EqualFold(id, "none") {
				id = shift.None
			}
			switch strings.ToLower(slot) {
			case "morning", "manana", "mañana":
				in.Morning = id
			case "intershift", "entreturno":
				in.Intershift = id
			case "afternoon", "tarde":
				in.Afternoon = id
			case "night", "noche":
				in.Night = id
			default:
				return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "unknown shift %q", slot), "shift")
			}
			return nil
		})
}

// configEditCmd builds one load-edit-save command; args are joined and handed to edit
func configEditCmd(a *App, use, short string, edit func(*ctrl.ConfigInput, string) error) *cobra.Command {
	nargs := strings.Count(use, "[")
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			device, _ := cmd.Flags().GetString("device")
			user, rid, err := a.writer(ctx)
			if err != nil {
				return err
			}

			doc, err := a.Control.LoadConfig(ctx, device)
			if err != nil {
				return perr.Wrapf(err, perr.CodeOf(err), "config %s", device)
			}
			in := ctrl.InputFrom(doc)
			if err := edit(&in, strings.Join(args, " ")); err != nil {
				return err
			}
			saved, err := a.Control.SaveConfig(ctx, device, in)
			if err != nil {
				return err
			}
			if err := a.Control.AppendAudit(ctx, ctrl.AuditEntry{
				Type:      "CONFIGURACIÓN_GUARDADA",
				Scope:     strings.ToUpper(device),
				Action:    "SAVE_CONFIG",
				ActionES:  "Guardar configuración",
				RequestID: rid,
				UserEmail: user,
				At:        a.now(),
			}); err != nil {
				fmt.Fprintf(out, "%s auditoría no registrada: %v\n", warn.Sprint("!"), err)
			}

			fmt.Fprintf(out, "%s Configuración de %s guardada\n", ok.Sprint("✓"), device)
			printInput(cmd, device, ctrl.InputFrom(saved))
			return nil
		},
	}
}
