package instaclone

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/instaclone/internal/version"
	"github.com/arthur-debert/instaclone/pkg/archive"
	"github.com/arthur-debert/instaclone/pkg/cache"
	"github.com/arthur-debert/instaclone/pkg/config"
	"github.com/arthur-debert/instaclone/pkg/logging"
	"github.com/arthur-debert/instaclone/pkg/paths"
	"github.com/arthur-debert/instaclone/pkg/transport"
	"github.com/arthur-debert/instaclone/pkg/versioning"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity  int
		configPath string
		force      bool
		offline    bool
	)

	rootCmd := &cobra.Command{
		Use:     "instaclone",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().BoolVarP(&force, "force", "f", false, MsgFlagForce)
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, MsgFlagOffline)

	// Define command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	// Add all commands
	rootCmd.AddCommand(newPublishCmd())
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newPurgeCmd())
	rootCmd.AddCommand(newConfigsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// loadConfig loads and validates the configuration, honoring --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	return config.Load(configPath)
}

// newStore builds the cache store described by the settings. The same
// runner executes transport commands and the command archiver, so all
// subprocess activity is logged in one place.
func newStore(settings config.Settings, runner transport.Runner) *cache.Store {
	var archiver archive.Archiver
	if settings.Archiver == config.ArchiverBuiltin {
		archiver = archive.NewZipArchiver()
	} else {
		archiver = archive.NewCommandArchiver(runner, settings.ArchiveCommand, settings.UnarchiveCommand)
	}
	return cache.NewStore(paths.CacheRoot(settings.CacheDir), runner, archiver, settings.Locking)
}

// itemNamesCompletion provides shell completion for item names
func itemNamesCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	// Filter out already specified items
	var names []string
	for _, item := range cfg.Items {
		name := item.DisplayName()
		taken := false
		for _, arg := range args {
			if arg == name {
				taken = true
				break
			}
		}
		if !taken {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "publish [items...]",
		Short:             MsgPublishShort,
		Long:              MsgPublishLong,
		Example:           MsgPublishExample,
		GroupID:           "core",
		ValidArgsFunction: itemNamesCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			items, err := cfg.SelectItems(args)
			if err != nil {
				return err
			}
			force, _ := cmd.Root().PersistentFlags().GetBool("force")

			runner := transport.NewExecRunner()
			store := newStore(cfg.Settings, runner)
			resolver := versioning.NewResolver(runner)

			log.Info().
				Str("cache_root", store.Root()).
				Int("items", len(items)).
				Bool("force", force).
				Msg("Publishing items")

			for _, item := range items {
				ver, err := resolver.Resolve(cmd.Context(), item)
				if err != nil {
					return fmt.Errorf(MsgErrResolveVersion, item.DisplayName(), err)
				}
				if err := store.Publish(cmd.Context(), item, ver, force); err != nil {
					return fmt.Errorf(MsgErrPublishItem, item.DisplayName(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), MsgPublished, item.DisplayName(), ver)
			}
			return nil
		},
	}
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "install [items...]",
		Short:             MsgInstallShort,
		Long:              MsgInstallLong,
		Example:           MsgInstallExample,
		GroupID:           "core",
		ValidArgsFunction: itemNamesCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			items, err := cfg.SelectItems(args)
			if err != nil {
				return err
			}
			force, _ := cmd.Root().PersistentFlags().GetBool("force")
			offline, _ := cmd.Root().PersistentFlags().GetBool("offline")

			runner := transport.NewExecRunner()
			store := newStore(cfg.Settings, runner)
			resolver := versioning.NewResolver(runner)

			log.Info().
				Str("cache_root", store.Root()).
				Int("items", len(items)).
				Bool("force", force).
				Bool("offline", offline).
				Msg("Installing items")

			for _, item := range items {
				ver, err := resolver.Resolve(cmd.Context(), item)
				if err != nil {
					return fmt.Errorf(MsgErrResolveVersion, item.DisplayName(), err)
				}
				opts := cache.InstallOptions{Force: force, Offline: offline}
				if err := store.Install(cmd.Context(), item, ver, opts); err != nil {
					return fmt.Errorf(MsgErrInstallItem, item.DisplayName(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), MsgInstalled, item.DisplayName(), ver)
			}
			return nil
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "purge",
		Short:   MsgPurgeShort,
		Long:    MsgPurgeLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store := newStore(cfg.Settings, transport.NewExecRunner())
			if err := store.Purge(cmd.Context()); err != nil {
				return fmt.Errorf(MsgErrPurge, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgPurged, store.Root())
			return nil
		},
	}
}

func newConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "configs",
		Short:   MsgConfigsShort,
		Long:    MsgConfigsLong,
		Example: MsgConfigsExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf(MsgErrRenderConfigs, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatBold(MsgConfigsHeader))
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "instaclone version %s\n", version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", version.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: MsgCompletionShort,
		Long: `To load completions:

Bash:
  $ source <(instaclone completion bash)

Zsh:
  $ instaclone completion zsh > "${fpath[1]}/_instaclone"

Fish:
  $ instaclone completion fish | source

PowerShell:
  PS> instaclone completion powershell | Out-String | Invoke-Expression
`,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
