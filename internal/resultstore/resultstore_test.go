package resultstore

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/backtest"
)

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	result := &backtest.Result{
		TotalOrders:     3,
		TotalFills:      2,
		StartingBalance: decimal.NewFromInt(10000),
		EndingBalance:   decimal.NewFromInt(10500),
		SharpeRatio:     1.25,
	}

	if err := s.Save("run1", result); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load("run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil")
	}

	if loaded.TotalOrders != result.TotalOrders {
		t.Errorf("TotalOrders = %v, want %v", loaded.TotalOrders, result.TotalOrders)
	}
	if !loaded.EndingBalance.Equal(result.EndingBalance) {
		t.Errorf("EndingBalance = %v, want %v", loaded.EndingBalance, result.EndingBalance)
	}
	if loaded.SharpeRatio != result.SharpeRatio {
		t.Errorf("SharpeRatio = %v, want %v", loaded.SharpeRatio, result.SharpeRatio)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.Load("nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing result, got %+v", loaded)
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	r1 := &backtest.Result{TotalOrders: 1}
	r2 := &backtest.Result{TotalOrders: 2}

	_ = s.Save("run1", r1)
	_ = s.Save("run1", r2)

	loaded, err := s.Load("run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TotalOrders != 2 {
		t.Errorf("TotalOrders = %v, want 2 (latest save)", loaded.TotalOrders)
	}
}
