package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventParty struct {
	Role        PartyRole   `json:"role"`
	AccountType AccountType `json:"accountType"`
	AccountID   string      `json:"accountId"`
}

// TransactionEvent is published once a transaction reaches COMPLETED or FAILED.
type TransactionEvent struct {
	TransactionID string            `json:"transactionId"`
	RequestID     string            `json:"requestId,omitempty"`
	Kind          TransactionKind   `json:"kind"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Fee           decimal.Decimal   `json:"fee"`
	Parties       []EventParty      `json:"parties"`
	FailureKind   ErrorKind         `json:"failureKind,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

func CompletedEvent(txn Transaction, at time.Time) TransactionEvent {
	parties := make([]EventParty, 0, len(txn.Parties))
	for _, p := range txn.Parties {
		parties = append(parties, EventParty{Role: p.Role, AccountType: p.AccountType, AccountID: p.AccountID})
	}
	return TransactionEvent{
		TransactionID: txn.ID,
		RequestID:     txn.RequestID,
		Kind:          txn.Kind,
		Status:        TransactionStatusCompleted,
		Amount:        txn.Amount,
		Fee:           txn.Fee,
		Parties:       parties,
		OccurredAt:    at,
	}
}
