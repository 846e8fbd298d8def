package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chriserin/ftspec/internal/config"
	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/gherkin"
)

var (
	configPath string
	verbose    bool

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()

	// catalog and steps are what this binary was built with.
	catalog = dsl.NewCatalog()
	steps   = gherkin.NewSteps()
)

var rootCmd = &cobra.Command{
	Use:           "ftspec",
	Short:         "Gherkin-style feature specs for Go",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		cfg = loaded

		logger, err = newLogger(cfg, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapCfg.Encoding = "console"
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// Execute runs the CLI against the features compiled into the binary. Plain
// text .feature files found at run time are bound against s.
func Execute(c *dsl.Catalog, s *gherkin.Steps) {
	if c != nil {
		catalog = c
	}
	if s != nil {
		steps = s
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
