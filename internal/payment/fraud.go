package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const fraudThreshold = 0.8

// FraudChecker scores a payment attempt against the customer's recent
// history. Two weighted signals: the share of failed attempts and how far
// the amount strays from the customer's average. A customer with no history
// scores zero; first purchases are never blocked.
type FraudChecker struct {
	repo Repository
	log  *zap.SugaredLogger
}

func NewFraudChecker(repo Repository, log *zap.SugaredLogger) *FraudChecker {
	return &FraudChecker{repo: repo, log: log}
}

// Score returns a value in [0, 1]. Callers compare against Suspicious.
func (c *FraudChecker) Score(ctx context.Context, customerID int64, amount decimal.Decimal) (float64, error) {
	history, err := c.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if len(history) == 0 {
		return 0, nil
	}

	var failed int
	sum := decimal.Zero
	for _, p := range history {
		if p.Status == StatusFailed {
			failed++
		}
		sum = sum.Add(p.Amount)
	}

	failRatio := float64(failed) / float64(len(history))

	avg := sum.Div(decimal.NewFromInt(int64(len(history))))
	deviation := 0.0
	if avg.IsPositive() {
		ratio, _ := amount.Div(avg).Float64()
		if ratio > 1 {
			// 2x the average scores 0.25, 5x and beyond saturates at 1.
			deviation = (ratio - 1) / 4
			if deviation > 1 {
				deviation = 1
			}
		}
	}

	score := failRatio*0.7 + deviation*0.3
	c.log.Debugw("fraud score computed",
		"customer_id", customerID, "score", score,
		"fail_ratio", failRatio, "amount_deviation", deviation)
	return score, nil
}

func (c *FraudChecker) Suspicious(score float64) bool {
	return score >= fraudThreshold
}
