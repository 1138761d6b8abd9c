package cheshired

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes follow convention: 0 success, 1 general error,
// 2 configuration error.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeConfig  = 2
)

// rootCmd is the cheshired entry point. It has no behavior of its own
// beyond dispatching to serve/version.
var rootCmd = &cobra.Command{
	Use:          "cheshired",
	Short:        "Cheshire multi-protocol request-processing server",
	Long:         `cheshired starts a Cheshire session: a set of capabilities exposed over REST and MCP, backed by source providers and a staged query engine.`,
	SilenceUsage: true,
}

// SetVersion injects the build-time version, read by the version command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI, translating a returned error into the process exit
// code getExitCode derives from it.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "cheshired version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error to one of the exit codes above. configError is
// the only error kind the CLI distinguishes; everything else is general.
func getExitCode(err error) int {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
