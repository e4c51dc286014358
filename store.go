package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type dbConfig struct {
	URL    string
	Schema string
	Tag    string
}

func dbURLFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("BUDGET_REALLOCATOR_DB_URL")); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func sanitizeIdentifier(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("identifier is required")
	}
	if !identifierPattern.MatchString(value) {
		return "", fmt.Errorf("invalid identifier: %s", value)
	}
	return value, nil
}

// storeRunInDB persists one run's reconciliation summary and final budgets.
func storeRunInDB(summary reconciliation, records []*campaignRecord, cfg dbConfig) (string, error) {
	schema, err := sanitizeIdentifier(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}
	if err := ensureRunSchema(ctx, db, schema); err != nil {
		return "", err
	}
	return storeRunTx(ctx, db, summary, records, schema, cfg.Tag)
}

func ensureRunSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.reallocation_runs (
			id uuid PRIMARY KEY,
			generated_at timestamptz NOT NULL,
			amortization_days integer NOT NULL,
			campaigns integer NOT NULL,
			tester_campaigns integer NOT NULL,
			unknown_channel_rows integer NOT NULL,
			total_initial_daily_spend numeric(12,2) NOT NULL,
			tester_daily_budget numeric(12,2) NOT NULL,
			other_daily_budget numeric(12,2) NOT NULL,
			total_daily_budget numeric(12,2) NOT NULL,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.reallocation_budgets (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.reallocation_runs(id) ON DELETE CASCADE,
			campaign text NOT NULL,
			type_tag text,
			channel text,
			ad_group text,
			clicks integer NOT NULL,
			spent numeric(12,2) NOT NULL,
			sales numeric(12,2) NOT NULL,
			sales_share numeric(8,4) NOT NULL,
			weighted_sales_share numeric(8,4) NOT NULL,
			distributed_spend numeric(12,2) NOT NULL,
			daily_budget numeric(12,2) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	return err
}

func storeRunTx(ctx context.Context, db *sql.DB, summary reconciliation, records []*campaignRecord, schema string, tag string) (string, error) {
	runID := uuid.New()
	generatedAt, err := time.Parse(time.RFC3339, summary.GeneratedAt)
	if err != nil {
		generatedAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	_, err = builder.Insert(schema+".reallocation_runs").
		Columns(
			"id", "generated_at", "amortization_days", "campaigns", "tester_campaigns",
			"unknown_channel_rows", "total_initial_daily_spend", "tester_daily_budget",
			"other_daily_budget", "total_daily_budget", "run_tag",
		).
		Values(
			runID, generatedAt, summary.AmortizationDays, summary.Campaigns, summary.TesterCampaigns,
			summary.UnknownChannelRows, summary.TotalInitialDaily, summary.TesterDailyBudget,
			summary.OtherDailyBudget, summary.TotalDailyBudget, nullString(tag),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", err
	}

	for _, record := range records {
		_, err = builder.Insert(schema+".reallocation_budgets").
			Columns(
				"id", "run_id", "campaign", "type_tag", "channel", "ad_group", "clicks",
				"spent", "sales", "sales_share", "weighted_sales_share", "distributed_spend", "daily_budget",
			).
			Values(
				uuid.New(), runID, record.Campaign, nullString(record.TypeTag),
				nullString(string(record.Channel)), nullString(record.AdGroup), record.Clicks,
				record.Spend, record.Sales, record.SalesShare, record.WeightedSalesShare,
				record.DistributedSpend, record.DailyBudget,
			).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return runID.String(), nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
