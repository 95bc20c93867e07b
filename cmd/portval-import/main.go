package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"portval/internal/config"
	"portval/internal/importer"
	"portval/internal/logging"
	"portval/pkg/portval"
)

// initialDateLayout is the day-first layout accepted by --initial-date.
const initialDateLayout = "02-01-2006"

type importFlags struct {
	initialDate string
	v0          string
	dbPath      string
	dataDir     string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "portval-import WEIGHTS_CSV PRICES_CSV",
		Short: "Load portfolio weights and price history into the portval database",
		Long: `Reads a weights CSV (date, asset and one column per portfolio) and a wide
prices CSV (date then one column per asset), creates or overwrites each
portfolio with the given base value and date, and stores the prices.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, f, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&f.initialDate, "initial-date", "", "Base date t0 as dd-mm-yyyy (required)")
	cmd.Flags().StringVar(&f.v0, "v0", importer.DefaultInitialValue.String(), "Initial portfolio value V0")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "Database file (default from config)")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory for the database and logs")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("initial-date")
	return cmd
}

func parseOptions(f importFlags) (importer.Options, error) {
	t, err := time.Parse(initialDateLayout, f.initialDate)
	if err != nil {
		return importer.Options{}, portval.Errorf(portval.ErrCodeInvalidInput, "invalid --initial-date %q, expected dd-mm-yyyy", f.initialDate)
	}
	v0, err := importer.ParseValue(f.v0, "--v0", false)
	if err != nil {
		return importer.Options{}, err
	}
	return importer.Options{InitialDate: civil.DateOf(t), InitialValue: v0}, nil
}

func runImport(cmd *cobra.Command, f importFlags, weightsPath, pricesPath string) error {
	opts, err := parseOptions(f)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.dataDir != "" {
		config.SetRuntimeDataDir(f.dataDir)
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}
	dbPath := f.dbPath
	if dbPath == "" {
		if dbPath, err = cfg.DBPath(); err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	level := cfg.Logging.Level
	if f.logLevel != "" {
		level = f.logLevel
	}
	logger, writer, err := logging.NewLogger(logging.Options{
		Dir:           filepath.Join(dataDir, "logs"),
		Level:         level,
		Format:        cfg.Logging.Format,
		RetentionDays: cfg.Logging.RetentionDays,
		Console:       cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer writer.Close()

	core, err := portval.OpenWithOptions(portval.Options{DBPath: dbPath, Logger: logger})
	if err != nil {
		return err
	}
	defer core.Close()

	result, err := importer.New(core).ImportFiles(cmd.Context(), weightsPath, pricesPath, opts)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result)
}

func printResult(w io.Writer, result *importer.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
