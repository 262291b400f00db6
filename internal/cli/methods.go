package cli

import (
	"fmt"
	"strconv"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/spf13/cobra"
)

func newMethodsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "methods",
		Aliases: []string{"m"},
		Short:   "Manage your payment methods",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all payment methods in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			methods, err := e.manager.Load(cmd.Context(), e.session())
			if err != nil {
				return err
			}
			return e.printMethods(cmd, methods)
		},
	}

	add := &cobra.Command{
		Use:   "add <type> <handle>",
		Short: "Add a payment method at the end of the list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var label *string
			if cmd.Flags().Changed("label") {
				value, _ := cmd.Flags().GetString("label")
				label = &value
			}
			created, err := e.manager.Create(cmd.Context(), e.session(), args[0], args[1], label)
			if created != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", created.Type, created.Handle, created.ID)
			}
			return err
		},
	}
	add.Flags().String("label", "", "Optional display label")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a payment method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := domain.PaymentMethodPatch{}
			if cmd.Flags().Changed("type") {
				value, _ := cmd.Flags().GetString("type")
				patch.Type = &value
			}
			if cmd.Flags().Changed("handle") {
				value, _ := cmd.Flags().GetString("handle")
				patch.Handle = &value
			}
			if cmd.Flags().Changed("label") {
				value, _ := cmd.Flags().GetString("label")
				patch.Label = &value
			}
			if cmd.Flags().Changed("active") {
				value, _ := cmd.Flags().GetBool("active")
				patch.Active = &value
			}
			if patch.IsEmpty() {
				return domain.NewValidationError("patch", "nothing to update")
			}
			updated, err := e.manager.Update(cmd.Context(), e.session(), args[0], patch)
			if updated != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
			}
			return err
		},
	}
	update.Flags().String("type", "", "Payment type")
	update.Flags().String("handle", "", "Handle, cashtag, email or address")
	update.Flags().String("label", "", "Display label; empty clears it")
	update.Flags().Bool("active", true, "Whether the method is shown publicly")

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Show or hide a payment method on your public page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := e.manager.ToggleActive(cmd.Context(), e.session(), args[0])
			if updated != nil {
				state := "hidden"
				if updated.Active {
					state = "visible"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", updated.ID, state)
			}
			return err
		},
	}

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a payment method",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.manager.Delete(cmd.Context(), e.session(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	up := &cobra.Command{
		Use:   "up <index>",
		Short: "Move the method at index one place up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			methods, err := e.manager.MoveUp(cmd.Context(), e.session(), index)
			if err != nil {
				return err
			}
			return e.printMethods(cmd, methods)
		},
	}

	down := &cobra.Command{
		Use:   "down <index>",
		Short: "Move the method at index one place down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			methods, err := e.manager.MoveDown(cmd.Context(), e.session(), index)
			if err != nil {
				return err
			}
			return e.printMethods(cmd, methods)
		},
	}

	reorder := &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the full display order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			methods, err := e.manager.Reorder(cmd.Context(), e.session(), args)
			if err != nil {
				return err
			}
			return e.printMethods(cmd, methods)
		},
	}

	cmd.AddCommand(list, add, update, toggle, remove, up, down, reorder)
	return cmd
}

func (e *env) printMethods(cmd *cobra.Command, methods []domain.PaymentMethod) error {
	if e.v.GetBool("json") {
		return writeJSON(cmd.OutOrStdout(), methods)
	}
	return writeMethods(cmd.OutOrStdout(), methods)
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("index", fmt.Sprintf("%q is not a number", raw))
	}
	return index, nil
}
