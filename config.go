package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type channel string

const (
	channelSP channel = "SP"
	channelSB channel = "SB"
	channelSD channel = "SD"
)

// orderedChannels fixes the display and processing order of channels.
var orderedChannels = []channel{channelSP, channelSB, channelSD}

const (
	spManualType   = "SP Manual"
	rankingAdGroup = "Ranking"
)

// channelRules holds the budget policy and bulk-sheet mapping for one channel.
type channelRules struct {
	MinSpend float64 `yaml:"min_spend"`
	// MaxSpend of 0 disables the ceiling for the channel.
	MaxSpend     float64 `yaml:"max_spend"`
	SheetName    string  `yaml:"sheet_name"`
	BudgetHeader string  `yaml:"budget_header"`
}

type config struct {
	AmortizationDays     int                      `yaml:"amortization_days"`
	RankingWeight        float64                  `yaml:"ranking_weight"`
	TesterClickThreshold int                      `yaml:"tester_click_threshold"`
	TesterMinSpend       float64                  `yaml:"tester_min_spend"`
	SPManualRankingMin   float64                  `yaml:"sp_manual_ranking_min"`
	ExcludedStates       []string                 `yaml:"excluded_states"`
	Channels             map[channel]channelRules `yaml:"channels"`
}

func defaultConfig() config {
	return config{
		AmortizationDays:     30,
		RankingWeight:        1.0,
		TesterClickThreshold: 10,
		TesterMinSpend:       3.0,
		SPManualRankingMin:   3.5,
		ExcludedStates:       []string{"Paused", "Archived"},
		Channels: map[channel]channelRules{
			channelSP: {
				MinSpend:     1.5,
				SheetName:    "Sponsored Products Campaigns",
				BudgetHeader: "Daily Budget",
			},
			channelSB: {
				MinSpend:     1.5,
				MaxSpend:     3.5,
				SheetName:    "Sponsored Brands Campaigns",
				BudgetHeader: "Budget",
			},
			channelSD: {
				MinSpend:     1.5,
				MaxSpend:     3.5,
				SheetName:    "Sponsored Display Campaigns",
				BudgetHeader: "Budget",
			},
		},
	}
}

// loadConfig returns defaults when path is empty, otherwise defaults merged
// with the YAML file at path.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.AmortizationDays <= 0 {
		return fmt.Errorf("amortization_days must be positive, got %d", c.AmortizationDays)
	}
	if c.RankingWeight <= 0 {
		return fmt.Errorf("ranking_weight must be positive, got %.2f", c.RankingWeight)
	}
	if c.TesterClickThreshold < 0 {
		return fmt.Errorf("tester_click_threshold must be non-negative, got %d", c.TesterClickThreshold)
	}
	if c.TesterMinSpend < 0 {
		return fmt.Errorf("tester_min_spend must be non-negative, got %.2f", c.TesterMinSpend)
	}
	if c.SPManualRankingMin < 0 {
		return fmt.Errorf("sp_manual_ranking_min must be non-negative, got %.2f", c.SPManualRankingMin)
	}
	for name, rules := range c.Channels {
		if rules.MinSpend < 0 {
			return fmt.Errorf("channel %s: min_spend must be non-negative, got %.2f", name, rules.MinSpend)
		}
		if rules.MaxSpend < 0 {
			return fmt.Errorf("channel %s: max_spend must be non-negative, got %.2f", name, rules.MaxSpend)
		}
		if rules.MaxSpend > 0 && rules.MaxSpend < rules.MinSpend {
			return fmt.Errorf("channel %s: max_spend %.2f is below min_spend %.2f", name, rules.MaxSpend, rules.MinSpend)
		}
	}
	return nil
}

func (c config) stateExcluded(state string) bool {
	for _, excluded := range c.ExcludedStates {
		if state == excluded {
			return true
		}
	}
	return false
}
