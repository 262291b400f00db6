package cli

import (
	"fmt"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/registry"
	"github.com/DanstheMan1981/allrails/pkg/pageclient"
	"github.com/spf13/cobra"
)

func newTypesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List supported payment types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, _ := cmd.Flags().GetBool("local")
			var types []pageclient.PaymentType
			if local {
				for _, cfg := range registry.Configs() {
					types = append(types, pageclient.PaymentType{
						Type:        string(cfg.Type),
						Label:       cfg.Label,
						Color:       cfg.Color,
						Icon:        cfg.Icon,
						Placeholder: cfg.Placeholder,
						Guidance:    cfg.Guidance,
					})
				}
			} else {
				fetched, err := e.client.PaymentTypes(cmd.Context())
				if err != nil {
					return err
				}
				types = fetched
			}

			if e.v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), types)
			}
			for _, t := range types {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %-12s %s\n", t.Icon, t.Type, t.Label, t.Placeholder)
			}
			return nil
		},
	}
	cmd.Flags().Bool("local", false, "Use the built-in registry instead of asking the server")
	return cmd
}

func newProfileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or edit your public profile",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := e.client.GetProfile(cmd.Context(), e.session().Token)
			if err != nil {
				return err
			}
			if profile == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile yet. Create one with: allrails profile set --username <name>")
				return nil
			}
			if e.v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), profile)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Username:     %s\n", profile.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "Display name: %s\n", valueOr(profile.DisplayName, "-"))
			fmt.Fprintf(cmd.OutOrStdout(), "Avatar:       %s\n", valueOr(profile.Avatar, "-"))
			fmt.Fprintf(cmd.OutOrStdout(), "Bio:          %s\n", valueOr(profile.Bio, "-"))
			fmt.Fprintf(cmd.OutOrStdout(), "Page:         %s\n", pageclient.ShareLink(e.publicURL(), profile.Username))
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Create or update your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := e.session().Token
			input := domain.UpsertProfileInput{}

			// Unchanged flags keep the stored values, since the server replaces the whole profile.
			current, err := e.client.GetProfile(cmd.Context(), token)
			if err != nil {
				return err
			}
			if current != nil {
				input.Username, input.DisplayName, input.Avatar, input.Bio = current.Username, current.DisplayName, current.Avatar, current.Bio
			}
			if cmd.Flags().Changed("username") {
				input.Username, _ = cmd.Flags().GetString("username")
			}
			for flag, dst := range map[string]**string{"display-name": &input.DisplayName, "avatar": &input.Avatar, "bio": &input.Bio} {
				if cmd.Flags().Changed(flag) {
					value, _ := cmd.Flags().GetString(flag)
					*dst = &value
				}
			}
			if err := input.Normalize(); err != nil {
				return err
			}

			saved, err := e.client.UpsertProfile(cmd.Context(), token, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved. Your page: %s\n", pageclient.ShareLink(e.publicURL(), saved.Username))
			return nil
		},
	}
	set.Flags().String("username", "", "Public username (3-30 of a-z, 0-9, -)")
	set.Flags().String("display-name", "", "Name shown on your page")
	set.Flags().String("avatar", "", "Avatar image URL")
	set.Flags().String("bio", "", "Short bio")

	link := &cobra.Command{
		Use:   "link",
		Short: "Print the share link for your public page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := e.client.GetProfile(cmd.Context(), e.session().Token)
			if err != nil {
				return err
			}
			if profile == nil {
				return domain.ErrNotFound
			}
			fmt.Fprintln(cmd.OutOrStdout(), pageclient.ShareLink(e.publicURL(), profile.Username))
			return nil
		},
	}

	cmd.AddCommand(get, set, link)
	return cmd
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
