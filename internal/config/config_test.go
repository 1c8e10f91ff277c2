package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
venues:
  - name: SIM
    oms: NETTING
    account_type: CASH
    base_currency: USD
    starting_balances: ["100000 USD"]
instruments:
  - symbol: EURUSD
    venue: SIM
    asset_class: FX
    quote_currency: USD
    price_precision: 5
    size_precision: 0
    taker_fee: 0.0002
strategies:
  - id: buy-and-hold
    kind: buy_and_hold
    params:
      quantity: 100
report:
  annualization_factor: 252
  output_dir: ./results
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "backtest.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	t.Parallel()
	path := writeSample(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(cfg.Venues) != 1 || cfg.Venues[0].Name != "SIM" {
		t.Fatalf("venues = %+v", cfg.Venues)
	}
	if len(cfg.Instruments) != 1 || cfg.Instruments[0].Symbol != "EURUSD" {
		t.Fatalf("instruments = %+v", cfg.Instruments)
	}
	if cfg.Report.AnnualizationFactor != 252 {
		t.Errorf("AnnualizationFactor = %v, want 252", cfg.Report.AnnualizationFactor)
	}
}

func TestValidateRejectsMissingVenues(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for config with no venues")
	}
}

func TestValidateRejectsBadOMS(t *testing.T) {
	t.Parallel()
	cfg := &Config{Venues: []VenueConfig{{Name: "SIM", OMS: "BOGUS", AccountType: "CASH", BaseCurrency: "USD"}}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid oms value")
	}
}

func TestDefaultAnnualizationFactor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	minimal := "venues:\n  - name: SIM\n    oms: NETTING\n    account_type: CASH\n    base_currency: USD\n"
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatalf("write minimal config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Report.AnnualizationFactor != 252 {
		t.Errorf("AnnualizationFactor = %v, want default 252", cfg.Report.AnnualizationFactor)
	}
}
