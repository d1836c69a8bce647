package console

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	perr "callrota/internal/platform/errors"
	ctrl "callrota/internal/services/control/domain"
)

// ContactsCmd groups the rotation member commands
func ContactsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List and edit rotation members",
	}
	cmd.AddCommand(contactsListCmd(a), contactsSetCmd(a))
	return cmd
}

func contactsListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contacts and their phonebook labels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if err := a.ports(ctx); err != nil {
				return err
			}
			cs, err := a.Control.ListContacts(ctx)
			if err != nil {
				return perr.Wrap(err, perr.CodeOf(err), "list contacts")
			}
			if len(cs) == 0 {
				fmt.Fprintln(out, "No hay contactos")
				return nil
			}
			fmt.Fprintf(out, "%-16s %-24s %s\n", "ID", "NOMBRE", "ETIQUETAS")
			for _, c := range cs {
				fmt.Fprintf(out, "%-16s %-24s %s\n", c.ID, c.DisplayName, labels(c))
			}
			return nil
		},
	}
}

func labels(c ctrl.Contact) string {
	keys := make([]string, 0, len(c.Labels))
	for d := range c.Labels {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, d := range keys {
		if l := c.LabelFor(d); l != "" {
			parts = append(parts, d+"="+l)
		} else {
			parts = append(parts, d+"="+faint.Sprint("-"))
		}
	}
	return strings.Join(parts, " ")
}

func contactsSetCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [contact-id]",
		Short: "Create or update a contact",
		Long: `Create or update a contact. Labels are the exact phonebook entry names on each
device and are merged into the stored ones; an empty label clears it.

Examples:
  callrota-console contacts set ana --name "Ana Ruiz" --label rediris="Guardia Ana"
  callrota-console contacts set ana --label telefonica=`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			name, _ := cmd.Flags().GetString("name")
			lbl, _ := cmd.Flags().GetStringToString("label")
			user, err := a.identity()
			if err != nil {
				return err
			}
			if err := a.ports(ctx); err != nil {
				return err
			}

			c := ctrl.Contact{ID: strings.TrimSpace(args[0]), DisplayName: strings.TrimSpace(name), Labels: lbl}
			if err := a.Control.UpsertContact(ctx, c); err != nil {
				return err
			}
			if err := a.Control.AppendAudit(ctx, ctrl.AuditEntry{
				Type:      "CONTACTO",
				Scope:     "AMBOS",
				Action:    "UPSERT_CONTACT",
				ActionES:  "Guardar contacto " + c.ID,
				RequestID: requestID(a.now()),
				UserEmail: user,
				At:        a.now(),
			}); err != nil {
				fmt.Fprintf(out, "%s auditoría no registrada: %v\n", warn.Sprint("!"), err)
			}
			fmt.Fprintf(out, "%s Contacto %s guardado\n", ok.Sprint("✓"), c.ID)
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().StringToString("label", nil, "device=phonebook label, repeatable")
	return cmd
}
