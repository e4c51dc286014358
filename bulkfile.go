package main

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	bulkEntityHeader    = "Entity"
	bulkOperationHeader = "Operation"
	bulkCampaignHeader  = "Campaign Name"
	bulkCampaignEntity  = "Campaign"
	bulkUpdateOperation = "Update"
)

type bulkUpdateSummary struct {
	SheetsUpdated    int `json:"sheets_updated"`
	CampaignRows     int `json:"campaign_rows"`
	MatchedRows      int `json:"matched_rows"`
	UnmatchedRows    int `json:"unmatched_rows"`
	UnwrittenBudgets int `json:"unwritten_budgets"`
}

// updateBulkFile merges the final daily budgets into the bulk-edit workbook
// by campaign name and saves the result to outputPath. Every campaign row is
// marked for update; rows with no matching budget keep their prior value.
func updateBulkFile(inputPath, outputPath string, budgets map[string]float64, cfg config) (bulkUpdateSummary, error) {
	var summary bulkUpdateSummary

	workbook, err := excelize.OpenFile(inputPath)
	if err != nil {
		return summary, fmt.Errorf("unable to open bulk file: %w", err)
	}
	defer workbook.Close()

	written := make(map[string]bool, len(budgets))
	for _, ch := range orderedChannels {
		rules, ok := cfg.Channels[ch]
		if !ok || rules.SheetName == "" {
			continue
		}
		if err := updateBulkSheet(workbook, rules, budgets, written, &summary); err != nil {
			return summary, err
		}
		summary.SheetsUpdated++
	}
	summary.UnwrittenBudgets = len(budgets) - len(written)

	if err := workbook.SaveAs(outputPath); err != nil {
		return summary, fmt.Errorf("unable to save bulk file: %w", err)
	}
	return summary, nil
}

func updateBulkSheet(workbook *excelize.File, rules channelRules, budgets map[string]float64, written map[string]bool, summary *bulkUpdateSummary) error {
	rows, err := workbook.GetRows(rules.SheetName)
	if err != nil {
		return fmt.Errorf("sheet %q: %w", rules.SheetName, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("sheet %q has no header row: %w", rules.SheetName, errMalformedHeader)
	}

	index := mapHeaders(rows[0])
	required := []string{
		strings.ToLower(bulkEntityHeader),
		strings.ToLower(bulkOperationHeader),
		strings.ToLower(bulkCampaignHeader),
		strings.ToLower(rules.BudgetHeader),
	}
	missing := missingHeaders(required, index)
	if len(missing) > 0 {
		return fmt.Errorf("sheet %q missing headers %s: %w", rules.SheetName, strings.Join(missing, ", "), errMalformedHeader)
	}

	entityCol := index[strings.ToLower(bulkEntityHeader)]
	operationCol := index[strings.ToLower(bulkOperationHeader)]
	campaignCol := index[strings.ToLower(bulkCampaignHeader)]
	budgetCol := index[strings.ToLower(rules.BudgetHeader)]

	for i := 1; i < len(rows); i++ {
		if getValue(rows[i], entityCol) != bulkCampaignEntity {
			continue
		}
		rowNum := i + 1
		if err := setCell(workbook, rules.SheetName, operationCol, rowNum, bulkUpdateOperation); err != nil {
			return err
		}
		summary.CampaignRows++

		name := getValue(rows[i], campaignCol)
		budget, ok := budgets[name]
		if !ok {
			summary.UnmatchedRows++
			continue
		}
		if err := setCell(workbook, rules.SheetName, budgetCol, rowNum, budget); err != nil {
			return err
		}
		summary.MatchedRows++
		written[name] = true
	}
	return nil
}

func setCell(workbook *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return workbook.SetCellValue(sheet, cell, value)
}
