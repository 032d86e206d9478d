package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode        string   `yaml:"mode"`         // DRY_RUN or LIVE
	PriceSource string   `yaml:"price_source"` // QUOTES or DELAYED
	Symbols     []string `yaml:"symbols"`
	DataDir     string   `yaml:"data_dir"`
	ORB         struct {
		Minutes         int     `yaml:"minutes"`
		BreakoutPct     float64 `yaml:"breakout_pct"`
		ProfitTargetPct float64 `yaml:"profit_target_pct"`
		StopLossPct     float64 `yaml:"stop_loss_pct"`
		LookbackDays    int     `yaml:"lookback_days"`
	} `yaml:"orb"`
	Risk struct {
		MaxPositionPct float64 `yaml:"max_position_pct"`
		CashBufferPct  float64 `yaml:"cash_buffer_pct"`
	} `yaml:"risk"`
	Sentiment struct {
		MaxArticles      int     `yaml:"max_articles"`
		HistorySize      int     `yaml:"history_size"`
		BullishThreshold float64 `yaml:"bullish_threshold"`
		BearishThreshold float64 `yaml:"bearish_threshold"`
	} `yaml:"sentiment"`
	LLM struct {
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Execution struct {
		FillPollSeconds    int `yaml:"fill_poll_seconds"`
		FillTimeoutSeconds int `yaml:"fill_timeout_seconds"`
	} `yaml:"execution"`
	Scheduler struct {
		MaxRetries          int `yaml:"max_retries"`
		RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
		CycleTimeoutMinutes int `yaml:"cycle_timeout_minutes"`
	} `yaml:"scheduler"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.PriceSource != "QUOTES" && c.PriceSource != "DELAYED" {
		return fmt.Errorf("invalid price_source '%s': must be 'QUOTES' or 'DELAYED'", c.PriceSource)
	}
	if len(c.Symbols) == 0 {
		return errors.New("symbols cannot be empty")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be between 0-1, got %.2f", c.Risk.MaxPositionPct)
	}
	if c.ORB.BreakoutPct < 0 {
		return fmt.Errorf("orb.breakout_pct cannot be negative, got %.4f", c.ORB.BreakoutPct)
	}
	if c.Sentiment.BullishThreshold <= c.Sentiment.BearishThreshold {
		return fmt.Errorf("sentiment thresholds inverted: bullish %.2f <= bearish %.2f",
			c.Sentiment.BullishThreshold, c.Sentiment.BearishThreshold)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.PriceSource == "" {
		c.PriceSource = "QUOTES"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.ORB.Minutes == 0 {
		c.ORB.Minutes = 15
	}
	if c.ORB.BreakoutPct == 0 {
		c.ORB.BreakoutPct = 0.002
	}
	if c.ORB.ProfitTargetPct == 0 {
		c.ORB.ProfitTargetPct = 0.01
	}
	if c.ORB.StopLossPct == 0 {
		c.ORB.StopLossPct = 0.005
	}
	if c.ORB.LookbackDays == 0 {
		c.ORB.LookbackDays = 7
	}
	if c.Risk.MaxPositionPct == 0 {
		c.Risk.MaxPositionPct = 0.10
	}
	if c.Risk.CashBufferPct == 0 {
		c.Risk.CashBufferPct = 0.05
	}
	if c.Sentiment.MaxArticles == 0 {
		c.Sentiment.MaxArticles = 10
	}
	if c.Sentiment.HistorySize == 0 {
		c.Sentiment.HistorySize = 5
	}
	if c.Sentiment.BullishThreshold == 0 {
		c.Sentiment.BullishThreshold = 0.7
	}
	if c.Sentiment.BearishThreshold == 0 {
		c.Sentiment.BearishThreshold = 0.3
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-3.5-turbo"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.Execution.FillPollSeconds == 0 {
		c.Execution.FillPollSeconds = 2
	}
	if c.Execution.FillTimeoutSeconds == 0 {
		c.Execution.FillTimeoutSeconds = 60
	}
	if c.Scheduler.MaxRetries == 0 {
		c.Scheduler.MaxRetries = 3
	}
	if c.Scheduler.RetryDelaySeconds == 0 {
		c.Scheduler.RetryDelaySeconds = 60
	}
	if c.Scheduler.CycleTimeoutMinutes == 0 {
		c.Scheduler.CycleTimeoutMinutes = 5
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}
