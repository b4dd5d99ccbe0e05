package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindSendMoney        TransactionKind = "SEND_MONEY"
	KindWithdrawal       TransactionKind = "WITHDRAWAL"
	KindDeposit          TransactionKind = "DEPOSIT"
	KindPaybill          TransactionKind = "PAYBILL"
	KindBuyGoods         TransactionKind = "BUY_GOODS"
	KindAirtime          TransactionKind = "AIRTIME"
	KindLoanDisbursement TransactionKind = "LOAN_DISBURSEMENT"
	KindLoanRepayment    TransactionKind = "LOAN_REPAYMENT"
)

var transactionPrefixes = map[TransactionKind]string{
	KindSendMoney:        "SM",
	KindWithdrawal:       "WD",
	KindDeposit:          "DP",
	KindPaybill:          "PB",
	KindBuyGoods:         "BG",
	KindAirtime:          "AT",
	KindLoanDisbursement: "LD",
	KindLoanRepayment:    "LR",
}

func (k TransactionKind) Valid() bool {
	_, ok := transactionPrefixes[k]
	return ok
}

func (k TransactionKind) Prefix() string {
	if p, ok := transactionPrefixes[k]; ok {
		return p
	}
	return "TX"
}

// ChargesFee reports whether the kind is priced from the charge schedule.
// Deposits, and both legs of a loan, never carry a fee.
func (k TransactionKind) ChargesFee() bool {
	switch k {
	case KindDeposit, KindLoanDisbursement, KindLoanRepayment:
		return false
	default:
		return k.Valid()
	}
}

func TransactionKinds() []TransactionKind {
	return []TransactionKind{
		KindSendMoney, KindWithdrawal, KindDeposit, KindPaybill,
		KindBuyGoods, KindAirtime, KindLoanDisbursement, KindLoanRepayment,
	}
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

type PartyRole string

const (
	PartyRoleSource      PartyRole = "SOURCE"
	PartyRoleDestination PartyRole = "DESTINATION"
	PartyRoleAgentFloat  PartyRole = "AGENT_FLOAT"
	PartyRoleFeeSink     PartyRole = "FEE_SINK"
)

// PartySnapshot records an account's balance on either side of the posting.
type PartySnapshot struct {
	Role          PartyRole       `json:"role"`
	AccountType   AccountType     `json:"accountType"`
	AccountID     string          `json:"accountId"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
}

type Transaction struct {
	ID                  string
	RequestID           string
	InitiatorID         string
	Kind                TransactionKind
	Status              TransactionStatus
	Amount              decimal.Decimal
	Fee                 decimal.Decimal
	TotalAmount         decimal.Decimal
	Currency            string
	SourceWalletID      string
	DestinationWalletID string
	AgentID             string
	MerchantID          string
	LoanID              string
	AccountReference    string
	RecipientPhone      string
	Network             string
	Narration           string
	Parties             []PartySnapshot
	Entries             []LedgerEntry
	Commission          *Commission
	FloatEntry          *FloatEntry
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

func (t Transaction) Party(role PartyRole) (PartySnapshot, bool) {
	for _, p := range t.Parties {
		if p.Role == role {
			return p, true
		}
	}
	return PartySnapshot{}, false
}

// LedgerEntry is one signed movement on one account. The entries of a
// transaction sum to zero.
type LedgerEntry struct {
	TransactionID string
	AccountType   AccountType
	AccountID     string
	Delta         decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

func SumDeltas(entries []LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Delta)
	}
	return sum
}

type Commission struct {
	ID            string
	AgentID       string
	TransactionID string
	Kind          TransactionKind
	Amount        decimal.Decimal
	CreatedAt     time.Time
}
