package cheshired

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/config"
	"github.com/cheshire-mcp/cheshire/internal/queryengine"
	"github.com/cheshire-mcp/cheshire/internal/sourceprovider"
	"github.com/cheshire-mcp/cheshire/internal/sourceprovider/postgres"
	"github.com/cheshire-mcp/cheshire/pkg/logging"
	"github.com/spf13/cobra"
)

// sessionShutdownGrace bounds the whole shutdown: stopping every transport
// handle and then Session.Stop. Session.Stop waits for in-flight dispatches
// for at most the shorter of what remains of this grace period and its own
// drain timeout before it shuts the registries down.
const sessionShutdownGrace = 10 * time.Second

// configError marks a serve failure caused by the config file itself
// (missing path, unparseable YAML, unknown reference) rather than a
// runtime failure, so getExitCode can report ExitCodeConfig.
type configError struct {
	cause error
}

func (e *configError) Error() string { return e.cause.Error() }
func (e *configError) Unwrap() error  { return e.cause }

var (
	serveConfigPath string
	serveDebug      bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a Cheshire session from a configuration file",
		Long: `serve loads a CheshireConfig from --config, builds a Session with its
declared source providers, query engines, and capabilities, starts every
bound transport, and runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveConfigPath, "config", "", "path to a CheshireConfig YAML file (required)")
	cmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveDebug {
		logging.Init(logging.LevelDebug, os.Stderr)
	}

	if serveConfigPath == "" {
		return &configError{cause: fmt.Errorf("--config is required")}
	}

	raw, err := os.ReadFile(serveConfigPath)
	if err != nil {
		return &configError{cause: fmt.Errorf("reading %s: %w", serveConfigPath, err)}
	}

	cfg, err := config.FromYAML(raw)
	if err != nil {
		return &configError{cause: fmt.Errorf("parsing %s: %w", serveConfigPath, err)}
	}

	builder := config.NewBuilder(defaultQueryEngineFactories(), defaultSourceProviderFactories())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, handles, err := builder.Build(ctx, cfg)
	if err != nil {
		return &configError{cause: err}
	}

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	logging.Info("cheshired", "session %s started with %d capabilities", cfg.Info.Name, len(cfg.Capabilities))

	for _, h := range handles {
		if err := h.Start(ctx); err != nil {
			return fmt.Errorf("starting transport for capability %q: %w", h.CapabilityName, err)
		}
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-runCtx.Done()

	logging.Info("cheshired", "shutdown signal received, draining session")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), sessionShutdownGrace)
	defer stopCancel()

	for _, h := range handles {
		if err := h.Stop(stopCtx); err != nil {
			logging.Warn("cheshired", "transport for %s stop failed: %v", h.CapabilityName, err)
		}
	}
	return sess.Stop(stopCtx)
}

// defaultQueryEngineFactories wires the single shipped engine type.
func defaultQueryEngineFactories() *queryengine.FactoryRegistry {
	r := queryengine.NewFactoryRegistry()
	_ = r.Register(queryengine.StagedEngineFactory{})
	return r
}

// defaultSourceProviderFactories wires every shipped SourceProvider type.
func defaultSourceProviderFactories() *sourceprovider.FactoryRegistry {
	r := sourceprovider.NewFactoryRegistry()
	_ = r.Register(postgres.Factory{})
	return r
}
