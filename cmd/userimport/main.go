// Command userimport imports a user spreadsheet from the local filesystem and
// prints the reconciliation report.
//
//	userimport --file users.xlsx [--store memory|postgres] [--json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/database"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/memstore"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	flagFile := pflag.StringP("file", "f", "", "spreadsheet to import (.xlsx or .csv)")
	flagStore := pflag.String("store", "", "storage backend: memory or postgres (default: STORAGE_DRIVER)")
	flagJSON := pflag.Bool("json", false, "print the report as JSON")
	flagEnv := pflag.String("env", ".env", "env file to load if present")
	flagTemplate := pflag.Bool("template", false, "write an empty CSV template to stdout and exit")
	flagVerbose := pflag.BoolP("verbose", "v", false, "list every row, not only problems")
	pflag.Parse()

	if *flagTemplate {
		if err := core.WriteTemplate(os.Stdout); err != nil {
			fail(err)
		}
		return
	}

	if *flagFile == "" {
		fmt.Fprintln(os.Stderr, "usage: userimport --file users.xlsx [--store memory|postgres] [--json]")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	_ = godotenv.Load(*flagEnv)

	cfg, err := config.LoadFrom(cliEnv(*flagStore))
	if err != nil {
		fail(err)
	}

	// Keep stdout clean for the report.
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := importFile(ctx, cfg, *flagFile)
	if err != nil {
		fail(err)
	}

	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fail(err)
		}
	} else {
		printReport(os.Stdout, rep, *flagVerbose)
	}

	if rep.Summary.Failed > 0 {
		os.Exit(1)
	}
}

// cliEnv adapts the environment for a local run: there is no HTTP caller to
// authenticate, and --store overrides STORAGE_DRIVER.
func cliEnv(store string) func(string) string {
	return func(key string) string {
		switch {
		case key == "AUTH_REQUIRED":
			return "false"
		case key == "STORAGE_DRIVER" && store != "":
			return store
		}
		return os.Getenv(key)
	}
}

func importFile(ctx context.Context, cfg *config.Config, path string) (*core.Report, error) {
	var store core.Store
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = memstore.New()
	default:
		db, err := database.Open(ctx, database.Config{
			URL:         cfg.Database.URL,
			MaxConns:    2,
			AutoMigrate: cfg.Database.AutoMigrate,
		})
		if err != nil {
			return nil, err
		}
		defer db.Close()
		store = db
	}

	hasher, err := core.NewBcryptHasher(cfg.Import.BcryptCost)
	if err != nil {
		return nil, err
	}

	svc, err := core.NewService(store, hasher, core.ServiceConfig{
		TempDir:     cfg.Import.TempDir,
		MaxFileSize: cfg.Import.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	user := os.Getenv("USER")
	ctx = core.ContextWithCaller(ctx, core.Caller{Subject: "cli:" + user})

	return svc.ImportFile(ctx, path)
}

func printReport(w io.Writer, rep *core.Report, verbose bool) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, rep.Message)
	fmt.Fprintf(w, "batch %s\n\n", rep.BatchID)

	for _, d := range rep.Details {
		if d.Status == core.StatusSuccess && !verbose {
			continue
		}
		fmt.Fprintf(w, "  row %-5d %-20s %s\n", d.Row, d.Username, statusLabel(d))
	}
	if len(rep.Details) > 0 {
		fmt.Fprintln(w)
	}

	s := rep.Summary
	fmt.Fprintf(w, "total %d  %s  %s  %s\n",
		s.Total,
		color.GreenString("inserted %d", s.Inserted),
		color.YellowString("skipped %d", s.Skipped),
		color.RedString("failed %d", s.Failed),
	)
}

func statusLabel(d core.RowDetail) string {
	switch d.Status {
	case core.StatusSuccess:
		return color.GreenString("imported %s", d.Identifier)
	case core.StatusSkipped:
		return color.YellowString("skipped: %s", d.Reason)
	default:
		return color.RedString("failed: %s", d.Reason)
	}
}

func fail(err error) {
	slog.Debug("import error detail", "error", err)
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), core.FormatUserError(err))
	os.Exit(1)
}
