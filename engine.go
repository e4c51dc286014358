package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var errDivisionUndefined = errors.New("division undefined")

// computeShares fills the derived share and raw budget fields on every
// record from the eligible totals. All outputs are rounded to their fixed
// precision before the constraint rules see them.
func computeShares(records []*campaignRecord, cfg config) error {
	var totalSpend, totalSales float64
	for _, record := range records {
		totalSpend += record.Spend
		totalSales += record.Sales
	}
	if totalSpend == 0 {
		return fmt.Errorf("total spend across eligible campaigns is zero: %w", errDivisionUndefined)
	}
	if totalSales == 0 {
		return fmt.Errorf("total sales across eligible campaigns is zero: %w", errDivisionUndefined)
	}

	for _, record := range records {
		record.SpendShare = roundShare(record.Spend / totalSpend)
		record.SalesShare = roundShare(record.Sales / totalSales)

		weighted := record.SalesShare
		if record.AdGroup == rankingAdGroup {
			// Weighted shares are deliberately not renormalized; the
			// reconciliation report surfaces the resulting divergence.
			weighted *= cfg.RankingWeight
		}
		record.WeightedSalesShare = roundShare(weighted)
		record.DistributedSpend = roundMoney(totalSpend * record.WeightedSalesShare)
		record.DailyBudget = roundMoney(record.DistributedSpend / float64(cfg.AmortizationDays))
	}
	return nil
}

// budgetRule is a single floor or ceiling adjustment. Rules are applied in
// list order; a later floor may re-raise a value an earlier ceiling lowered.
type budgetRule struct {
	name  string
	apply func(record *campaignRecord, cfg config)
}

func constraintRules() []budgetRule {
	return []budgetRule{
		{
			name: "channel floor",
			apply: func(record *campaignRecord, cfg config) {
				rules, ok := cfg.Channels[record.Channel]
				if !ok {
					return
				}
				record.DailyBudget = max(record.DailyBudget, rules.MinSpend)
			},
		},
		{
			name: "channel ceiling",
			apply: func(record *campaignRecord, cfg config) {
				rules, ok := cfg.Channels[record.Channel]
				if !ok || rules.MaxSpend == 0 {
					return
				}
				record.DailyBudget = min(record.DailyBudget, rules.MaxSpend)
			},
		},
		{
			name: "manual ranking floor",
			apply: func(record *campaignRecord, cfg config) {
				if record.TypeTag != spManualType || record.AdGroup != rankingAdGroup {
					return
				}
				record.DailyBudget = max(record.DailyBudget, cfg.SPManualRankingMin)
			},
		},
		{
			name: "tester floor",
			apply: func(record *campaignRecord, cfg config) {
				if !isTester(record, cfg) {
					return
				}
				record.DailyBudget = max(record.DailyBudget, cfg.TesterMinSpend)
			},
		},
	}
}

// applyConstraints runs every constraint rule over every record, rule by
// rule. Records whose type tag matched no channel pass through the channel
// rules untouched.
func applyConstraints(records []*campaignRecord, cfg config) {
	for _, rule := range constraintRules() {
		for _, record := range records {
			rule.apply(record, cfg)
		}
	}
}

// isTester reports whether a record is a low-click SP campaign. The tag is
// matched by containment, so every SP sub-type qualifies.
func isTester(record *campaignRecord, cfg config) bool {
	return strings.Contains(record.TypeTag, string(channelSP)) && record.Clicks < cfg.TesterClickThreshold
}

func roundShare(value float64) float64 {
	return roundPlaces(value, 4)
}

func roundMoney(value float64) float64 {
	return roundPlaces(value, 2)
}

func roundTenth(value float64) float64 {
	return roundPlaces(value, 1)
}

func roundPlaces(value float64, places int32) float64 {
	result, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return result
}
