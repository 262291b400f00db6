package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/DanstheMan1981/allrails/internal/manager"
	"github.com/DanstheMan1981/allrails/pkg/pageclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultAPIURL = "http://localhost:8080"

// env is what every subcommand needs, resolved once flags and environment are parsed.
type env struct {
	v       *viper.Viper
	client  *pageclient.Client
	manager *manager.Manager
}

func (e *env) session() manager.Session {
	return manager.Session{Token: strings.TrimSpace(e.v.GetString("token"))}
}

func (e *env) publicURL() string {
	if publicURL := strings.TrimSpace(e.v.GetString("public_url")); publicURL != "" {
		return publicURL
	}
	return e.v.GetString("api_url")
}

// NewRootCommand builds the allrails command tree. Settings come from flags,
// then ALLRAILS_* environment variables.
func NewRootCommand() *cobra.Command {
	e := &env{v: viper.New()}
	e.v.SetEnvPrefix("allrails")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()
	e.v.SetDefault("api_url", defaultAPIURL)

	root := &cobra.Command{
		Use:           "allrails",
		Short:         "Manage and share your AllRails payment page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			if e.v.GetBool("verbose") {
				logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
			e.client = pageclient.NewClient(e.v.GetString("api_url"))
			e.manager = manager.New(e.client, logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("api-url", defaultAPIURL, "AllRails API base URL (ALLRAILS_API_URL)")
	flags.String("token", "", "Bearer token for owner commands (ALLRAILS_TOKEN)")
	flags.String("public-url", "", "Base URL of public pages, defaults to the API URL (ALLRAILS_PUBLIC_URL)")
	flags.Bool("json", false, "Print raw JSON")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	_ = e.v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = e.v.BindPFlag("token", flags.Lookup("token"))
	_ = e.v.BindPFlag("public_url", flags.Lookup("public-url"))
	_ = e.v.BindPFlag("json", flags.Lookup("json"))
	_ = e.v.BindPFlag("verbose", flags.Lookup("verbose"))

	root.AddCommand(newTypesCmd(e))
	root.AddCommand(newProfileCmd(e))
	root.AddCommand(newMethodsCmd(e))
	root.AddCommand(newPageCmd(e))
	return root
}

// Execute runs the CLI with os.Args.
func Execute(version string) error {
	root := NewRootCommand()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		return err
	}
	return nil
}
