package trading

import (
	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is 0.39%, applied to the gross value of every fill.
var DefaultCommissionRate = decimal.NewFromFloat(0.0039)

// Round2 rounds to two decimal places. All monetary amounts are rounded at
// the point of computation so displayed estimates and settled amounts match.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Commission is round(value * rate, 2).
func Commission(value, rate decimal.Decimal) decimal.Decimal {
	return Round2(value.Mul(rate))
}

// OrderCost is the buy-side breakdown: gross value, commission, and the
// total cash debit.
type OrderCost struct {
	Value      decimal.Decimal `json:"value"`
	Commission decimal.Decimal `json:"commission"`
	Total      decimal.Decimal `json:"total"`
}

func CalculateOrderCost(quantity, price, rate decimal.Decimal) OrderCost {
	value := Round2(quantity.Mul(price))
	commission := Commission(value, rate)
	return OrderCost{
		Value:      value,
		Commission: commission,
		Total:      value.Add(commission),
	}
}

// OrderProceeds is the sell-side breakdown: gross value, commission, and the
// net cash credit.
type OrderProceeds struct {
	Value      decimal.Decimal `json:"value"`
	Commission decimal.Decimal `json:"commission"`
	Net        decimal.Decimal `json:"net"`
}

func CalculateOrderProceeds(quantity, price, rate decimal.Decimal) OrderProceeds {
	value := Round2(quantity.Mul(price))
	commission := Commission(value, rate)
	return OrderProceeds{
		Value:      value,
		Commission: commission,
		Net:        value.Sub(commission),
	}
}

// WeightedAvgPrice recomputes a position's average purchase price after a
// buy: (oldQty*oldAvg + buyQty*buyPrice) / (oldQty+buyQty). Sells never
// change the average.
func WeightedAvgPrice(oldQty, oldAvg, buyQty, buyPrice decimal.Decimal) decimal.Decimal {
	total := oldQty.Add(buyQty)
	if total.IsZero() {
		return decimal.Zero
	}
	return oldQty.Mul(oldAvg).Add(buyQty.Mul(buyPrice)).DivRound(total, 4)
}

// GainPercent is (current-avg)/avg*100, defined as 0 when avg is 0.
func GainPercent(avg, current decimal.Decimal) decimal.Decimal {
	if avg.IsZero() {
		return decimal.Zero
	}
	return current.Sub(avg).Div(avg).Mul(decimal.NewFromInt(100)).Round(2)
}
