package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	inputPath := flag.String("input", "", "Path to ad group stats CSV")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	bulkPath := flag.String("bulk", "", "Optional bulk-edit workbook to update")
	bulkOut := flag.String("bulk-out", "updated_bulk_file.xlsx", "Output path for the updated bulk-edit workbook")
	budgetsOut := flag.String("budgets-csv", "", "Optional CSV output for final campaign budgets")
	jsonOut := flag.String("json", "", "Optional JSON output path for the reconciliation summary")
	fromDB := flag.Bool("from-db", false, "Load campaign stats from Postgres (requires BUDGET_REALLOCATOR_DB_URL or DATABASE_URL)")
	dbTable := flag.String("db-table", "ad_group_stats", "Postgres table holding campaign stats")
	dbEnabled := flag.Bool("db", false, "Store the run summary and budgets in Postgres")
	dbSchema := flag.String("db-schema", "budget_reallocator", "Postgres schema for run tables")
	dbTag := flag.String("db-tag", "", "Optional label for this run")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		exitWith(err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *inputPath == "" && !*fromDB {
		exitWith("-input is required unless -from-db is set")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		exitWith(err.Error())
	}

	var (
		records []*campaignRecord
		load    loadReport
	)
	inputLabel := *inputPath
	if *fromDB {
		dbURL := dbURLFromEnv()
		if dbURL == "" {
			exitWith("database URL missing; set BUDGET_REALLOCATOR_DB_URL or DATABASE_URL")
		}
		inputLabel = fmt.Sprintf("postgres table %s", *dbTable)
		records, load, err = loadRecordsFromDB(dbURL, *dbTable, cfg)
	} else {
		records, load, err = loadRecords(*inputPath, cfg)
	}
	if err != nil {
		exitWith(err.Error())
	}

	for _, warning := range load.Warnings {
		logger.Warn("input row defaulted or skipped", zap.String("detail", warning))
	}
	logger.Debug("dataset loaded",
		zap.Int("rows_read", load.RowsRead),
		zap.Int("dropped_state", load.DroppedState),
		zap.Int("unknown_channel", load.UnknownChannel),
	)
	if load.UnknownChannel > 0 {
		logger.Warn("campaigns with unrecognized channel pass through unconstrained", zap.Int("count", load.UnknownChannel))
	}

	if err := computeShares(records, cfg); err != nil {
		exitWith(err.Error())
	}
	applyConstraints(records, cfg)

	summary := reconcile(records, cfg)

	printConfig(cfg)
	fmt.Println()
	printReport(summary, inputLabel)

	budgets := budgetsByName(records)

	if *budgetsOut != "" {
		if err := writeBudgetsCSV(records, *budgetsOut); err != nil {
			exitWith(err.Error())
		}
		fmt.Printf("\nBudgets CSV saved to %s\n", *budgetsOut)
	}
	if *jsonOut != "" {
		if err := writeJSON(summary, *jsonOut); err != nil {
			exitWith(err.Error())
		}
		fmt.Printf("JSON report saved to %s\n", *jsonOut)
	}

	if *bulkPath != "" {
		bulkSummary, err := updateBulkFile(*bulkPath, *bulkOut, budgets, cfg)
		if err != nil {
			exitWith(err.Error())
		}
		fmt.Printf("\nBulk file updated: %s (%d sheets, %d campaign rows, %d budgets written)\n",
			*bulkOut, bulkSummary.SheetsUpdated, bulkSummary.CampaignRows, bulkSummary.MatchedRows)
		if bulkSummary.UnmatchedRows > 0 {
			logger.Warn("bulk rows with no matching campaign budget kept their prior value",
				zap.Int("count", bulkSummary.UnmatchedRows))
		}
		if bulkSummary.UnwrittenBudgets > 0 {
			logger.Warn("campaign budgets with no bulk row were not written",
				zap.Int("count", bulkSummary.UnwrittenBudgets))
		}
	}

	if *dbEnabled {
		dbURL := dbURLFromEnv()
		if dbURL == "" {
			exitWith("database URL missing; set BUDGET_REALLOCATOR_DB_URL or DATABASE_URL")
		}
		runID, err := storeRunInDB(summary, records, dbConfig{
			URL:    dbURL,
			Schema: *dbSchema,
			Tag:    *dbTag,
		})
		if err != nil {
			exitWith(err.Error())
		}
		fmt.Printf("\nStored run in Postgres (run_id=%s)\n", runID)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func exitWith(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	os.Exit(1)
}
