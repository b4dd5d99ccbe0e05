package services

import (
	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

var DefaultWithdrawalCommissionShare = decimal.RequireFromString("0.30")

// CommissionCalculator prices agent commission. It is pure: the same inputs
// always give the same result and nothing is written.
type CommissionCalculator struct {
	withdrawalShare decimal.Decimal
}

func NewCommissionCalculator(withdrawalShare decimal.Decimal) CommissionCalculator {
	return CommissionCalculator{withdrawalShare: withdrawalShare}
}

// Compute returns the commission owed to the agent and whether a commission
// record should exist. Withdrawals pay a share of the fee; deposits pay the
// agent's rate on the principal.
func (c CommissionCalculator) Compute(kind domain.TransactionKind, amount, fee, agentRate decimal.Decimal) (decimal.Decimal, bool) {
	var commission decimal.Decimal
	switch kind {
	case domain.KindWithdrawal:
		commission = domain.RoundMoney(fee.Mul(c.withdrawalShare))
	case domain.KindDeposit:
		commission = domain.RoundMoney(domain.Percent(amount, agentRate))
	default:
		return decimal.Zero, false
	}
	if !commission.IsPositive() {
		return decimal.Zero, false
	}
	return commission, true
}
