// Package cli implements mapkit-admin, the operator tool for the MapKit token service.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// skipSetup marks commands that run without configuration or a credential store.
const skipSetup = "skip-setup"

// newRootCommand builds the mapkit-admin command tree.
// newRootCommand 构建 mapkit-admin 命令树。
func newRootCommand(env *environment) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mapkit-admin",
		Short: "Administer the MapKit JS token service",
		Long: `mapkit-admin validates and manages the Apple MapKit credentials used by the
token service, issues tokens for debugging and inspects tokens issued elsewhere.

It reads the same configuration file and MAPKIT_AUTH_* environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return env.setup(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&env.opts.ConfigFile, "config", "c", "", "path to the configuration file")
	flags.StringVar(&env.opts.EnvFile, "env-file", "", "dotenv file loaded before the environment")
	flags.BoolVarP(&env.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(
		newValidateCommand(env),
		newIssueCommand(env),
		newInspectCommand(),
		newSettingsCommand(env),
		newAuditCommand(env),
	)
	return rootCmd
}

// Run executes mapkit-admin with args, writing command output to out.
// Connections opened by the command are closed before Run returns.
func Run(ctx context.Context, args []string, out io.Writer) error {
	env := &environment{}
	defer env.close()

	rootCmd := newRootCommand(env)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	return rootCmd.ExecuteContext(ctx)
}

// Execute runs mapkit-admin and exits non-zero on failure.
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
