package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type channelSpendSummary struct {
	Channel    channel `json:"channel"`
	DailySpend float64 `json:"daily_spend"`
	Percent    float64 `json:"percent_of_total"`
}

// reconciliation is the read-only audit view of a finished run. Percentages
// are taken against the historical daily baseline, so they exceed 100% when
// the floors inflate the budget beyond raw history.
type reconciliation struct {
	GeneratedAt        string                `json:"generated_at"`
	AmortizationDays   int                   `json:"amortization_days"`
	Campaigns          int                   `json:"campaigns"`
	TesterCampaigns    int                   `json:"tester_campaigns"`
	UnknownChannelRows int                   `json:"unknown_channel_rows"`
	TotalInitialDaily  float64               `json:"total_initial_daily_spend"`
	TesterDailyBudget  float64               `json:"tester_daily_budget"`
	OtherDailyBudget   float64               `json:"other_daily_budget"`
	TotalDailyBudget   float64               `json:"total_daily_budget"`
	TesterPercent      float64               `json:"tester_percent"`
	OtherPercent       float64               `json:"other_percent"`
	TotalPercent       float64               `json:"total_percent"`
	ChannelSpend       []channelSpendSummary `json:"channel_spend"`
}

func reconcile(records []*campaignRecord, cfg config) reconciliation {
	days := float64(cfg.AmortizationDays)

	var totalSpend float64
	var testerDaily, otherDaily float64
	var testerCount, unknownCount int
	channelSpend := make(map[channel]float64, len(orderedChannels))
	for _, record := range records {
		totalSpend += record.Spend
		channelSpend[record.Channel] += record.Spend
		if record.Channel == "" {
			unknownCount++
		}
		if isTester(record, cfg) {
			testerCount++
			testerDaily += record.DailyBudget
		} else {
			otherDaily += record.DailyBudget
		}
	}

	summary := reconciliation{
		GeneratedAt:        time.Now().Format(time.RFC3339),
		AmortizationDays:   cfg.AmortizationDays,
		Campaigns:          len(records),
		TesterCampaigns:    testerCount,
		UnknownChannelRows: unknownCount,
		TotalInitialDaily:  roundMoney(totalSpend / days),
		TesterDailyBudget:  roundMoney(testerDaily),
		OtherDailyBudget:   roundMoney(otherDaily),
		TotalDailyBudget:   roundMoney(testerDaily + otherDaily),
	}
	if summary.TotalInitialDaily > 0 {
		summary.TesterPercent = roundMoney(summary.TesterDailyBudget / summary.TotalInitialDaily * 100)
		summary.OtherPercent = roundMoney(summary.OtherDailyBudget / summary.TotalInitialDaily * 100)
		summary.TotalPercent = roundMoney(summary.TotalDailyBudget / summary.TotalInitialDaily * 100)
	}

	totalDailySpend := roundTenth(totalSpend / days)
	for _, ch := range orderedChannels {
		entry := channelSpendSummary{
			Channel:    ch,
			DailySpend: roundTenth(channelSpend[ch] / days),
		}
		if totalDailySpend > 0 {
			entry.Percent = roundTenth(entry.DailySpend / totalDailySpend * 100)
		}
		summary.ChannelSpend = append(summary.ChannelSpend, entry)
	}
	return summary
}

// budgetsByName maps campaign names to their final daily budget. Duplicate
// names resolve last-write-wins, matching the write-back collaborator.
func budgetsByName(records []*campaignRecord) map[string]float64 {
	budgets := make(map[string]float64, len(records))
	for _, record := range records {
		budgets[record.Campaign] = record.DailyBudget
	}
	return budgets
}

func printConfig(cfg config) {
	fmt.Println("Configuration")
	fmt.Println(strings.Repeat("-", 13))
	fmt.Printf("Amortization window:    %d days\n", cfg.AmortizationDays)
	fmt.Printf("Ranking weight:         %.2f\n", cfg.RankingWeight)
	fmt.Printf("Tester click threshold: %d\n", cfg.TesterClickThreshold)
	fmt.Printf("Tester min spend:       £%.2f\n", cfg.TesterMinSpend)
	fmt.Printf("SP Manual/Ranking min:  £%.2f\n", cfg.SPManualRankingMin)
	fmt.Printf("Excluded states:        %s\n", strings.Join(cfg.ExcludedStates, ", "))
	for _, ch := range orderedChannels {
		rules, ok := cfg.Channels[ch]
		if !ok {
			continue
		}
		ceiling := "no ceiling"
		if rules.MaxSpend > 0 {
			ceiling = fmt.Sprintf("max £%.2f", rules.MaxSpend)
		}
		fmt.Printf("%s: min £%.2f, %s\n", ch, rules.MinSpend, ceiling)
	}
}

func printReport(summary reconciliation, inputLabel string) {
	fmt.Println("Budget Reallocation Summary")
	fmt.Println(strings.Repeat("=", 27))
	fmt.Printf("Input: %s\n", inputLabel)
	fmt.Printf("Campaigns: %d (%d testers)\n", summary.Campaigns, summary.TesterCampaigns)
	if summary.UnknownChannelRows > 0 {
		fmt.Printf("Unrecognized channel rows: %d\n", summary.UnknownChannelRows)
	}
	fmt.Printf("Total initial spend (daily): £%.2f\n", summary.TotalInitialDaily)
	fmt.Printf("Tester daily budget: £%.2f (%.2f%%)\n", summary.TesterDailyBudget, summary.TesterPercent)
	fmt.Printf("Other daily budget:  £%.2f (%.2f%%)\n", summary.OtherDailyBudget, summary.OtherPercent)
	fmt.Printf("Total daily budget:  £%.2f (%.2f%%)\n", summary.TotalDailyBudget, summary.TotalPercent)

	fmt.Println("\nHistorical daily spend by channel")
	fmt.Println(strings.Repeat("-", 33))
	for _, entry := range summary.ChannelSpend {
		fmt.Printf("%s: £%.1f/day (%.1f%%)\n", entry.Channel, entry.DailySpend, entry.Percent)
	}
}

func writeJSON(summary reconciliation, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeBudgetsCSV(records []*campaignRecord, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create budgets CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"campaign", "type", "ad_group", "state", "clicks", "spent", "sales",
		"spend_share", "sales_share", "weighted_sales_share", "distributed_spend", "daily_budget",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			record.Campaign,
			record.TypeTag,
			record.AdGroup,
			record.State,
			strconv.Itoa(record.Clicks),
			strconv.FormatFloat(record.Spend, 'f', 2, 64),
			strconv.FormatFloat(record.Sales, 'f', 2, 64),
			strconv.FormatFloat(record.SpendShare, 'f', 4, 64),
			strconv.FormatFloat(record.SalesShare, 'f', 4, 64),
			strconv.FormatFloat(record.WeightedSalesShare, 'f', 4, 64),
			strconv.FormatFloat(record.DistributedSpend, 'f', 2, 64),
			strconv.FormatFloat(record.DailyBudget, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
