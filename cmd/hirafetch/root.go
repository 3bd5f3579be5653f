package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"hirafetch/pkg/hira"
	"hirafetch/pkg/ui"
)

var (
	// Version information, set with -ldflags
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	serviceKey string
	authMode   string
	account    string
)

var rootCmd = &cobra.Command{
	Use:   "hirafetch",
	Short: "Download hospital data from the HIRA open APIs",
	Long: `hirafetch downloads hospital records from the Health Insurance Review and
Assessment Service (HIRA) open APIs published on data.go.kr.

  list     page through the hospital list with region, department and class filters
  detail   look up detail information for every institution in a list file

Both fetches checkpoint their progress. An interrupted or failed run resumes
where it stopped when started again with the same checkpoint name.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		hira.UserAgent = "hirafetch/" + version
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.hirafetch.yaml or ~/.config/hirafetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().StringVar(&serviceKey, "service-key", "", "data.go.kr service key (overrides stored credentials)")
	rootCmd.PersistentFlags().StringVar(&authMode, "auth-mode", "", "service key form: url (encoded key) or query (decoded key)")
	rootCmd.PersistentFlags().StringVarP(&account, "account", "a", "", "name of a stored service key")

	rootCmd.SetVersionTemplate(`hirafetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
