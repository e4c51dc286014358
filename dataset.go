package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var errMalformedHeader = errors.New("malformed header")

// campaignRecord is one campaign/ad-group row from the stats snapshot.
// The derived fields are filled in by computeShares and applyConstraints.
type campaignRecord struct {
	Campaign string
	TypeTag  string
	Channel  channel // empty when the type tag matches no known channel
	AdGroup  string
	State    string
	Clicks   int
	Spend    float64
	Sales    float64

	SpendShare         float64
	SalesShare         float64
	WeightedSalesShare float64
	DistributedSpend   float64
	DailyBudget        float64
}

type loadReport struct {
	RowsRead       int
	DroppedState   int
	UnknownChannel int
	Warnings       []string
}

func classifyChannel(typeTag string) channel {
	for _, ch := range orderedChannels {
		if strings.HasPrefix(typeTag, string(ch)) {
			return ch
		}
	}
	return ""
}

func loadRecords(path string, cfg config) ([]*campaignRecord, loadReport, error) {
	var report loadReport

	file, err := os.Open(path)
	if err != nil {
		return nil, report, fmt.Errorf("unable to open stats CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, report, fmt.Errorf("unable to read header: %w", err)
	}
	index := mapHeaders(header)

	required := []string{"campaign", "type", "adgroup", "state", "clicks", "spent", "sales"}
	missing := missingHeaders(required, index)
	if len(missing) > 0 {
		return nil, report, fmt.Errorf("missing required headers %s: %w", strings.Join(missing, ", "), errMalformedHeader)
	}

	var records []*campaignRecord
	line := 1
	for {
		line++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		report.RowsRead++

		get := func(key string) string {
			return getValue(row, index[key])
		}

		name := get("campaign")
		if name == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: missing campaign name", line))
			continue
		}
		state := get("state")
		if cfg.stateExcluded(state) {
			report.DroppedState++
			continue
		}

		typeTag := get("type")
		record := &campaignRecord{
			Campaign: name,
			TypeTag:  typeTag,
			Channel:  classifyChannel(typeTag),
			AdGroup:  get("adgroup"),
			State:    state,
			Clicks:   parseCount(get("clicks"), line, "clicks", &report),
			Spend:    parseAmount(get("spent"), line, "spent", &report),
			Sales:    parseAmount(get("sales"), line, "sales", &report),
		}
		if record.Channel == "" {
			report.UnknownChannel++
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, report, fmt.Errorf("no eligible campaigns found in %s", path)
	}
	return records, report, nil
}

func mapHeaders(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		index[key] = i
	}
	return index
}

func missingHeaders(required []string, index map[string]int) []string {
	var missing []string
	for _, key := range required {
		if _, ok := index[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func getValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCount reads a non-negative integer; anything absent or unusable
// defaults to 0, matching how the stats export leaves blanks.
func parseCount(value string, line int, field string, report *loadReport) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: invalid %s %q, defaulting to 0", line, field, value))
		return 0
	}
	return parsed
}

func parseAmount(value string, line int, field string, report *loadReport) float64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: invalid %s %q, defaulting to 0", line, field, value))
		return 0
	}
	return parsed
}

// loadRecordsFromDB reads the same stats columns from a Postgres table.
func loadRecordsFromDB(dbURL, table string, cfg config) ([]*campaignRecord, loadReport, error) {
	var report loadReport

	tableName, err := sanitizeIdentifier(table)
	if err != nil {
		return nil, report, err
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, report, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, report, err
	}

	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("campaign", "type", "ad_group", "state", "clicks", "spent", "sales").
		From(tableName).
		ToSql()
	if err != nil {
		return nil, report, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, report, err
	}
	defer rows.Close()

	var records []*campaignRecord
	for rows.Next() {
		var (
			name    string
			typeTag sql.NullString
			adGroup sql.NullString
			state   sql.NullString
			clicks  sql.NullInt64
			spent   sql.NullFloat64
			sales   sql.NullFloat64
		)
		if err := rows.Scan(&name, &typeTag, &adGroup, &state, &clicks, &spent, &sales); err != nil {
			return nil, report, err
		}
		report.RowsRead++
		if cfg.stateExcluded(state.String) {
			report.DroppedState++
			continue
		}
		record := &campaignRecord{
			Campaign: name,
			TypeTag:  typeTag.String,
			Channel:  classifyChannel(typeTag.String),
			AdGroup:  adGroup.String,
			State:    state.String,
			Clicks:   int(clicks.Int64),
			Spend:    spent.Float64,
			Sales:    sales.Float64,
		}
		if record.Channel == "" {
			report.UnknownChannel++
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, report, err
	}

	if len(records) == 0 {
		return nil, report, fmt.Errorf("no eligible campaigns found in table %s", tableName)
	}
	return records, report, nil
}
