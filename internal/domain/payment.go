package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

type PaymentAction string

const (
	PaymentActionVerify PaymentAction = "verify"
	PaymentActionReject PaymentAction = "reject"
	PaymentActionEdit   PaymentAction = "edit"
	PaymentActionDelete PaymentAction = "delete"
)

// LinkKind is what a payment pays for.
type LinkKind string

const (
	LinkInvoice           LinkKind = "invoice"
	LinkBalanceAdjustment LinkKind = "balance_adjustment"
)

// Validate checks k is a known link kind.
func (k LinkKind) Validate() error {
	if k != LinkInvoice && k != LinkBalanceAdjustment {
		return fmt.Errorf("%w: %q", ErrInvalidLinkKind, string(k))
	}
	return nil
}

// Payment is a customer payment awaiting or past verification.
type Payment struct {
	Date              time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	VerifiedAt        *time.Time
	ID                string
	Currency          Currency
	PaidToBranchID    string
	PaidToAccountType AccountType
	OriginBranchID    string
	LinkKind          LinkKind
	LinkID            string
	Reference         string
	Description       string
	Status            PaymentStatus
	VerifiedBy        string
	RejectionReason   string
	Amount            decimal.Decimal
	AmountUSD         decimal.Decimal
	ExchangeRate      decimal.NullDecimal
}

// PaidToAccountID is the account the payment settles into.
func (p *Payment) PaidToAccountID() string {
	return AccountID(p.PaidToBranchID, p.PaidToAccountType)
}

// CanTransition reports whether action is allowed from the current status.
// Pending payments accept every action; verified and rejected ones can only be
// deleted.
func (p *Payment) CanTransition(action PaymentAction) error {
	if p.Status == PaymentStatusPending || action == PaymentActionDelete {
		return nil
	}
	return fmt.Errorf("%w: cannot %s a %s payment", ErrInvalidTransition, action, p.Status)
}

// Verify moves a pending payment to verified.
func (p *Payment) Verify(actor string, at time.Time) error {
	if err := p.CanTransition(PaymentActionVerify); err != nil {
		return err
	}
	p.Status = PaymentStatusVerified
	p.VerifiedBy = actor
	p.VerifiedAt = &at
	p.UpdatedAt = at
	return nil
}

// Reject moves a pending payment to rejected. It never touches balances.
func (p *Payment) Reject(actor, reason string, at time.Time) error {
	if err := p.CanTransition(PaymentActionReject); err != nil {
		return err
	}
	p.Status = PaymentStatusRejected
	p.VerifiedBy = actor
	p.VerifiedAt = &at
	p.RejectionReason = reason
	p.UpdatedAt = at
	return nil
}

// Validate checks the fields entered by the operator.
func (p *Payment) Validate() error {
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if !p.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if p.PaidToBranchID == "" {
		return ErrInvalidBranch
	}
	if err := p.PaidToAccountType.Validate(); err != nil {
		return err
	}
	return p.LinkKind.Validate()
}

// SettlementEvent is the credit a verified payment produces.
func (p *Payment) SettlementEvent() SettlementEvent {
	return SettlementEvent{
		Date:           p.Date,
		Amount:         p.Amount,
		Currency:       p.Currency,
		BranchID:       p.PaidToBranchID,
		AccountType:    p.PaidToAccountType,
		OriginBranchID: p.OriginBranchID,
		SourceModule:   SourcePayment,
		SourceID:       p.ID,
		Direction:      DirectionCredit,
		Category:       string(p.LinkKind),
		Description:    p.Description,
	}
}

// SourceRef locates the entry of a verified payment.
func (p *Payment) SourceRef() SourceRef {
	return SourceRef{BranchID: p.PaidToBranchID, Module: SourcePayment, ID: p.ID}
}
