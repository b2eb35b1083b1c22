package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yeti47/eight/config"
)

type rootFlags struct {
	configPath string
	logLevel   string
	tempDir    string
	userID     string
	serverURL  string
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:   "eight",
	Short: "Record, edit and publish short vertical clips",
	Long: "eight records short clips from a local camera, trims them and burns in a caption, " +
		"then publishes the result to a blob server.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "config.json", "Path to the configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	pf.StringVar(&flags.tempDir, "temp-dir", "", "Directory for recordings and intermediate files (overrides config)")
	pf.StringVar(&flags.userID, "user", "", "User id clips are published as (overrides config)")
	pf.StringVar(&flags.serverURL, "server-url", "", "Blob server URL (overrides config)")

	rootCmd.AddCommand(recordCmd, editCmd, serveCmd, hashSecretCmd)
}

// overrides turns the persistent flags into config overrides
func (f *rootFlags) overrides() config.ConfigOverrides {
	return config.ConfigOverrides{
		LogLevel:  &f.logLevel,
		TempDir:   &f.tempDir,
		UserID:    &f.userID,
		ServerURL: &f.serverURL,
	}
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
