package domain

import "time"

// Event types
const (
	EventTypeEntryAppended         = "entry.appended"
	EventTypeEntryRemoved          = "entry.removed"
	EventTypeFundTransferCreated   = "fund_transfer.created"
	EventTypeFundTransferCompleted = "fund_transfer.completed"
	EventTypeFundTransferDeleted   = "fund_transfer.deleted"
	EventTypePaymentVerified       = "payment.verified"
	EventTypePaymentRejected       = "payment.rejected"
)

// Aggregate types
const (
	AggregateTypeEntry        = "entry"
	AggregateTypeFundTransfer = "fund_transfer"
	AggregateTypePayment      = "payment"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// EntryPayload builds the payload of entry events.
func EntryPayload(e *Entry) map[string]any {
	return map[string]any{
		"entry_id":      e.ID,
		"branch_id":     e.BranchID,
		"account_id":    e.AccountID,
		"direction":     string(e.Direction),
		"amount":        e.Amount.String(),
		"currency":      string(e.Currency),
		"source_module": string(e.SourceModule),
		"source_id":     e.SourceID,
		"balance_after": e.AccountCurrentBalance.String(),
		"date":          e.Date.Format(DateLayout),
	}
}

// FundTransferPayload builds the payload of fund transfer events.
func FundTransferPayload(t *FundTransfer) map[string]any {
	return map[string]any{
		"transfer_id":    t.ID,
		"from_branch_id": t.FromBranchID,
		"to_branch_id":   t.ToBranchID,
		"account_type":   string(t.AccountType),
		"amount":         t.Amount.String(),
		"currency":       string(t.Currency),
		"amount_usd":     t.AmountUSD.String(),
		"status":         string(t.Status),
	}
}

// PaymentPayload builds the payload of payment events.
func PaymentPayload(p *Payment) map[string]any {
	return map[string]any{
		"payment_id": p.ID,
		"status":     string(p.Status),
		"amount":     p.Amount.String(),
		"currency":   string(p.Currency),
		"amount_usd": p.AmountUSD.String(),
		"branch_id":  p.PaidToBranchID,
		"actor":      p.VerifiedBy,
	}
}
