package trading

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateOrderCost_DefaultRate(t *testing.T) {
	cost := CalculateOrderCost(decimal.NewFromInt(10), decimal.NewFromInt(100), DefaultCommissionRate)
	if cost.Value.StringFixed(2) != "1000.00" {
		t.Fatalf("value=%s want 1000.00", cost.Value)
	}
	if cost.Commission.StringFixed(2) != "3.90" {
		t.Fatalf("commission=%s want 3.90", cost.Commission)
	}
	if cost.Total.StringFixed(2) != "1003.90" {
		t.Fatalf("total=%s want 1003.90", cost.Total)
	}
}

func TestCalculateOrderProceeds_DefaultRate(t *testing.T) {
	p := CalculateOrderProceeds(decimal.NewFromInt(10), decimal.NewFromInt(100), DefaultCommissionRate)
	if p.Value.StringFixed(2) != "1000.00" {
		t.Fatalf("value=%s want 1000.00", p.Value)
	}
	if p.Commission.StringFixed(2) != "3.90" {
		t.Fatalf("commission=%s want 3.90", p.Commission)
	}
	if p.Net.StringFixed(2) != "996.10" {
		t.Fatalf("net=%s want 996.10", p.Net)
	}
}

func TestCommission_RoundsAtComputation(t *testing.T) {
	// 333.33 * 0.0039 = 1.299987 -> 1.30
	got := Commission(decimal.NewFromFloat(333.33), DefaultCommissionRate)
	if got.StringFixed(2) != "1.30" {
		t.Fatalf("commission=%s want 1.30", got)
	}
}

func TestWeightedAvgPrice(t *testing.T) {
	avg := WeightedAvgPrice(
		decimal.NewFromInt(10), decimal.NewFromInt(100),
		decimal.NewFromInt(10), decimal.NewFromInt(200),
	)
	if avg.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("avg=%s want 150", avg)
	}
}

func TestWeightedAvgPrice_FromEmpty(t *testing.T) {
	avg := WeightedAvgPrice(decimal.Zero, decimal.Zero, decimal.NewFromInt(5), decimal.NewFromInt(40))
	if avg.Cmp(decimal.NewFromInt(40)) != 0 {
		t.Fatalf("avg=%s want 40", avg)
	}
}

func TestGainPercent_ZeroAvg(t *testing.T) {
	if got := GainPercent(decimal.Zero, decimal.NewFromInt(50)); !got.IsZero() {
		t.Fatalf("gain%%=%s want 0", got)
	}
}

func TestGainPercent(t *testing.T) {
	got := GainPercent(decimal.NewFromInt(100), decimal.NewFromInt(140))
	if got.Cmp(decimal.NewFromInt(40)) != 0 {
		t.Fatalf("gain%%=%s want 40", got)
	}
}
