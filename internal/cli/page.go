package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/registry"
	"github.com/DanstheMan1981/allrails/internal/resolve"
	"github.com/spf13/cobra"
)

func newPageCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "View a public payment page as a visitor",
	}

	show := &cobra.Command{
		Use:   "show <username>",
		Short: "Show the payment methods on a public page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := e.client.GetPublicPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e.v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), page)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (@%s)\n", valueOr(page.DisplayName, page.Username), page.Username)
			if page.Bio != nil && *page.Bio != "" {
				fmt.Fprintln(out, *page.Bio)
			}
			if len(page.Methods) == 0 {
				fmt.Fprintln(out, "No payment methods yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for i, m := range page.Methods {
				cfg := registry.Lookup(m.Type)
				fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\n", i, cfg.Icon, registry.DisplayLabel(m.Type, m.Label), m.Handle, describeAction(m.Action))
			}
			return tw.Flush()
		},
	}

	pay := &cobra.Command{
		Use:   "pay <username> <index>",
		Short: "Open or copy the payment method at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			page, err := e.client.GetPublicPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if index < 0 || index >= len(page.Methods) {
				return domain.NewValidationError("index", fmt.Sprintf("page has %d payment methods", len(page.Methods)))
			}

			method := page.Methods[index]
			out := cmd.OutOrStdout()
			outcome, err := resolve.Trigger(cmd.Context(), method.Action, resolve.WriterNavigator{Out: out}, resolve.OSC52Clipboard{Out: out})
			if err != nil {
				return err
			}
			switch {
			case outcome.Navigated:
			case outcome.Copied:
				fmt.Fprintf(out, "\nCopied %s. %s\n", method.Action.Text, method.Action.Instructions)
			default:
				fmt.Fprintf(out, "%s\n%s\n", method.Action.Text, method.Action.Instructions)
			}
			return nil
		},
	}

	cmd.AddCommand(show, pay)
	return cmd
}

func describeAction(action resolve.Action) string {
	if action.IsNavigate() {
		return action.URI
	}
	return "copy: " + action.Instructions
}
