// Package config loads the ledgerline.yaml configuration plus the
// .env overlay for credentials and log level.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ledgerline/ledgerline/internal/pipeline"
	"github.com/ledgerline/ledgerline/internal/recon"
)

// Config represents the top-level ledgerline.yaml configuration.
type Config struct {
	Business Business `yaml:"business"`
	Storage  Storage  `yaml:"storage"`
	Import   Import   `yaml:"import"`
	Matching Matching `yaml:"matching"`
}

// Business identifies the business the ledger belongs to.
type Business struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// BankAccountID names the default bank feed account mapped to the
	// cash ledger account.
	BankAccountID string `yaml:"bank_account_id"`
}

// Storage selects the database file and the document bucket.
type Storage struct {
	DBPath string `yaml:"db_path"`

	// DocumentBucket is the GCS bucket holding uploaded receipts.
	DocumentBucket string `yaml:"document_bucket,omitempty"`
}

// Import tunes the batch processor.
type Import struct {
	ChunkSize         int `yaml:"chunk_size"`
	MaxRetries        int `yaml:"max_retries"`
	RetryBaseDelaySec int `yaml:"retry_base_delay_seconds"`
	TxTimeoutSec      int `yaml:"tx_timeout_seconds"`
}

// Matching tunes the reconciliation matcher and the auto sweep.
type Matching struct {
	Matcher recon.MatcherParams `yaml:"matcher"`

	AutoReconcileThreshold float64 `yaml:"auto_reconcile_threshold"`

	// GeminiModel overrides the extraction model name.
	GeminiModel string `yaml:"gemini_model,omitempty"`
}

// Load reads a ledgerline.yaml file from disk and applies the .env
// overlay. A missing .env is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(businessID, businessName string) *Config {
	cfg := &Config{
		Business: Business{
			ID:   businessID,
			Name: businessName,
		},
		Storage: Storage{
			DBPath: "ledgerline.db",
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	d := pipeline.DefaultConfig()
	if c.Import.ChunkSize <= 0 {
		c.Import.ChunkSize = d.ChunkSize
	}
	if c.Import.MaxRetries <= 0 {
		c.Import.MaxRetries = d.MaxRetries
	}
	if c.Import.RetryBaseDelaySec <= 0 {
		c.Import.RetryBaseDelaySec = int(d.RetryBaseDelay / time.Second)
	}
	if c.Import.TxTimeoutSec <= 0 {
		c.Import.TxTimeoutSec = int(d.TxTimeout / time.Second)
	}

	if c.Matching.Matcher.MaxDateDiffDays == 0 {
		c.Matching.Matcher = recon.DefaultMatcherParams()
	}
	if c.Matching.AutoReconcileThreshold <= 0 {
		c.Matching.AutoReconcileThreshold = recon.DefaultServiceConfig().AutoReconcileThreshold
	}
}

// PipelineConfig maps the import section onto the processor tunables.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		ChunkSize:      c.Import.ChunkSize,
		MaxRetries:     c.Import.MaxRetries,
		RetryBaseDelay: time.Duration(c.Import.RetryBaseDelaySec) * time.Second,
		TxTimeout:      time.Duration(c.Import.TxTimeoutSec) * time.Second,
	}
}

// ReconConfig maps the matching section onto the service tunables.
func (c *Config) ReconConfig() recon.ServiceConfig {
	return recon.ServiceConfig{
		Matcher:                c.Matching.Matcher,
		AutoReconcileThreshold: c.Matching.AutoReconcileThreshold,
	}
}
