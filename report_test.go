package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestReconcileBucketsAndPercentages(t *testing.T) {
	cfg := defaultConfig()
	cfg.AmortizationDays = 10

	tester := buildRecord("tester", "SP Auto", "Discovery", 1, 20, 10)
	tester.DailyBudget = 3.0
	other := buildRecord("other", "SP Manual", "Auto", 50, 60, 40)
	other.DailyBudget = 4.0
	display := buildRecord("display", "SD Remarketing", "Retargeting", 50, 20, 30)
	display.DailyBudget = 3.5
	records := []*campaignRecord{tester, other, display}

	summary := reconcile(records, cfg)

	if summary.Campaigns != 3 || summary.TesterCampaigns != 1 {
		t.Fatalf("campaign counts = %d/%d, want 3/1", summary.Campaigns, summary.TesterCampaigns)
	}
	if summary.TotalInitialDaily != 10.0 {
		t.Fatalf("total initial daily = %.2f, want 10.00", summary.TotalInitialDaily)
	}
	if summary.TesterDailyBudget != 3.0 || summary.OtherDailyBudget != 7.5 {
		t.Fatalf("buckets = %.2f/%.2f, want 3.00/7.50", summary.TesterDailyBudget, summary.OtherDailyBudget)
	}
	if summary.TotalDailyBudget != 10.5 {
		t.Fatalf("total daily budget = %.2f, want 10.50", summary.TotalDailyBudget)
	}
	// Floors inflated the pool past raw history; percentages may exceed 100.
	if summary.TotalPercent != 105.0 {
		t.Fatalf("total percent = %.2f, want 105.00", summary.TotalPercent)
	}
	if summary.TesterPercent != 30.0 {
		t.Fatalf("tester percent = %.2f, want 30.00", summary.TesterPercent)
	}

	if len(summary.ChannelSpend) != 3 {
		t.Fatalf("expected 3 channel entries, got %d", len(summary.ChannelSpend))
	}
	sp := summary.ChannelSpend[0]
	if sp.Channel != channelSP || sp.DailySpend != 8.0 || sp.Percent != 80.0 {
		t.Fatalf("SP channel entry = %+v, want 8.0/day at 80%%", sp)
	}
	sb := summary.ChannelSpend[1]
	if sb.DailySpend != 0 || sb.Percent != 0 {
		t.Fatalf("SB channel entry = %+v, want zero spend", sb)
	}
	sd := summary.ChannelSpend[2]
	if sd.DailySpend != 2.0 || sd.Percent != 20.0 {
		t.Fatalf("SD channel entry = %+v, want 2.0/day at 20%%", sd)
	}
}

func TestReconcileCountsUnknownChannels(t *testing.T) {
	cfg := defaultConfig()
	known := buildRecord("known", "SP Auto", "Discovery", 50, 50, 50)
	unknown := buildRecord("unknown", "Video Remarketing", "Brand", 50, 50, 50)
	summary := reconcile([]*campaignRecord{known, unknown}, cfg)

	if summary.UnknownChannelRows != 1 {
		t.Fatalf("unknown channel rows = %d, want 1", summary.UnknownChannelRows)
	}
}

func TestBudgetsByNameLastWriteWins(t *testing.T) {
	first := buildRecord("dup", "SP Auto", "Discovery", 50, 10, 10)
	first.DailyBudget = 1.0
	second := buildRecord("dup", "SP Auto", "Ranking", 50, 10, 10)
	second.DailyBudget = 2.0

	budgets := budgetsByName([]*campaignRecord{first, second})
	if len(budgets) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(budgets))
	}
	if budgets["dup"] != 2.0 {
		t.Fatalf("budget = %.2f, want the later record's 2.00", budgets["dup"])
	}
}

func TestWriteBudgetsCSV(t *testing.T) {
	record := buildRecord("Alpha", "SP Auto", "Discovery", 12, 40.5, 80.25)
	record.SpendShare = 0.7
	record.SalesShare = 0.5
	record.WeightedSalesShare = 0.5
	record.DistributedSpend = 50
	record.DailyBudget = 3.57

	path := filepath.Join(t.TempDir(), "budgets.csv")
	if err := writeBudgetsCSV([]*campaignRecord{record}, path); err != nil {
		t.Fatalf("writeBudgetsCSV failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("unable to open budgets CSV: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("unable to read budgets CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d rows", len(rows))
	}
	if rows[1][0] != "Alpha" || rows[1][11] != "3.57" {
		t.Fatalf("unexpected data row: %v", rows[1])
	}
}
