package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chriserin/ftspec/internal/config"
	"github.com/chriserin/ftspec/internal/db"
	"github.com/chriserin/ftspec/internal/dsl"
	"github.com/chriserin/ftspec/internal/gherkin"
	"github.com/chriserin/ftspec/internal/isolation"
	"github.com/chriserin/ftspec/internal/metrics"
	"github.com/chriserin/ftspec/internal/reporter"
	"github.com/chriserin/ftspec/internal/runner"
)

// ErrTestsFailed is returned by RunFeatures when at least one test failed.
var ErrTestsFailed = errors.New("tests failed")

var (
	grepFlag     string
	featuresFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the feature specs",
	RunE: func(cmd *cobra.Command, args []string) error {
		child, err := isolation.ChildFromEnv()
		if err != nil {
			return err
		}
		c, err := loadCatalog(catalog, featuresFlag, steps)
		if err != nil {
			return err
		}
		_, err = RunFeatures(cmd.Context(), cmd.OutOrStdout(), RunOptions{
			Catalog: c,
			Grep:    grepFlag,
			Config:  cfg,
			Logger:  logger,
			Child:   child,
		})
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&grepFlag, "grep", "", "Only run features whose name matches this glob")
	runCmd.Flags().StringVar(&featuresFlag, "features", "features", "Directory of .feature files")
	rootCmd.AddCommand(runCmd)
}

type RunOptions struct {
	Catalog *dsl.Catalog
	Grep    string
	Config  *config.Config
	Logger  *zap.Logger

	// Child is set when this process was spawned to run one isolated suite.
	Child *isolation.Child
	// Spawner starts isolated children. Nil re-executes the current binary.
	Spawner isolation.Spawner
}

// RunFeatures builds the selected features and runs them. A parent run is
// recorded in the database and, when configured, exported as a metrics textfile.
func RunFeatures(ctx context.Context, w io.Writer, opts RunOptions) (*runner.Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tree := runner.NewTree()
	n, err := opts.Catalog.Build(tree, opts.Grep)
	if err != nil {
		return nil, err
	}
	log.Debug("features selected", zap.Int("count", n), zap.String("grep", opts.Grep))

	rep := reporter.New(reporter.Options{Out: w, Color: cfg.Reporter.Color})
	m := metrics.New()
	e := runner.NewEmitter()

	// The coordinator swaps test bodies at suite start, before anything else
	// looks at them.
	if cfg.Isolation.Enabled || opts.Child != nil {
		isolation.New(isolation.Options{
			Spawner: opts.Spawner,
			Quieter: rep,
			Child:   opts.Child,
			Policy:  cfg.Policy(),
			Logger:  log.Named("isolation"),
			Metrics: m,
		}).Attach(e)
	}
	rep.Attach(e)
	m.Attach(e)

	var scope string
	if opts.Child != nil {
		scope = opts.Child.Target
	}

	started := time.Now()
	res := runner.New(tree.Root(), e, runner.Options{Scope: scope, Logger: log.Named("runner")}).Run(ctx)

	if opts.Child != nil {
		return res, nil
	}

	if err := recordRun(w, cfg.Database, started, res); err != nil {
		log.Warn("recording run", zap.Error(err))
	}
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("writing metrics textfile", zap.Error(err))
		}
	}

	if res.Failed() > 0 {
		return res, ErrTestsFailed
	}
	return res, nil
}

func recordRun(w io.Writer, path string, started time.Time, res *runner.Result) error {
	if path == "" {
		return nil
	}
	sqlDB, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlDB.Close()

	run, err := db.NewStore(sqlDB).RecordRun(started, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Run %s recorded\n", shortID(run.ID))
	return nil
}

// loadCatalog returns base plus every .feature file under dir. A missing dir
// adds nothing.
func loadCatalog(base *dsl.Catalog, dir string, s *gherkin.Steps) (*dsl.Catalog, error) {
	c := dsl.NewCatalog()
	for _, e := range base.Entries() {
		if err := c.Add(e.Name, e.Spec); err != nil {
			return nil, err
		}
	}
	if dir == "" {
		return c, nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return c, nil
	}
	if _, err := gherkin.Load(os.DirFS(dir), c, s); err != nil {
		return nil, fmt.Errorf("loading %s: %w", dir, err)
	}
	return c, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
