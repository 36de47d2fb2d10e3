package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags are shared by every subcommand
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags registers --config, --verbose and --quiet on the root
// command. --verbose and --quiet cannot be combined.
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&globalFlags.ConfigFile, "config", "",
		"config file (default $MEDIACOMPACT_CONFIG, then $XDG_CONFIG_HOME or ~/.config/mediacompact/config.yaml)")
	flags.BoolVarP(&globalFlags.Verbose, "verbose", "v", false,
		"print one line per item and log debug messages")
	flags.BoolVarP(&globalFlags.Quiet, "quiet", "q", false,
		"print failures and the summary only")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}
