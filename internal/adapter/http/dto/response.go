package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID                  string          `json:"id"`
	BranchID            string          `json:"branch_id"`
	Type                string          `json:"type"`
	Name                string          `json:"name"`
	Currency            string          `json:"currency"`
	Balance             decimal.Decimal `json:"balance"`
	ProvisioningBalance decimal.Decimal `json:"provisioning_balance"`
	Version             int64           `json:"version"`
	LastActivityAt      *time.Time      `json:"last_activity_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:                  a.ID,
		BranchID:            a.BranchID,
		Type:                string(a.Type),
		Name:                a.Name,
		Currency:            string(a.Currency),
		Balance:             a.Balance,
		ProvisioningBalance: a.ProvisioningBalance,
		Version:             a.Version,
		CreatedAt:           a.CreatedAt,
	}
	if !a.LastActivityAt.IsZero() {
		last := a.LastActivityAt
		resp.LastActivityAt = &last
	}
	return resp
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a list of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID                     string           `json:"id"`
	BranchID               string           `json:"branch_id"`
	AccountID              string           `json:"account_id"`
	Date                   string           `json:"date"`
	Direction              string           `json:"direction"`
	Amount                 decimal.Decimal  `json:"amount"`
	Currency               string           `json:"currency"`
	OtherCurrencyAmount    *decimal.Decimal `json:"other_currency_amount,omitempty"`
	ExchangeRate           *decimal.Decimal `json:"exchange_rate,omitempty"`
	Category               string           `json:"category"`
	Description            string           `json:"description,omitempty"`
	SourceModule           string           `json:"source_module"`
	SourceID               string           `json:"source_id"`
	AccountPreviousBalance decimal.Decimal  `json:"account_previous_balance"`
	AccountCurrentBalance  decimal.Decimal  `json:"account_current_balance"`
	AccountVersion         int64            `json:"account_version"`
	Sequence               int64            `json:"sequence"`
	CreatedAt              time.Time        `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:                     e.ID,
		BranchID:               e.BranchID,
		AccountID:              e.AccountID,
		Date:                   e.Date.Format(domain.DateLayout),
		Direction:              string(e.Direction),
		Amount:                 e.Amount,
		Currency:               string(e.Currency),
		OtherCurrencyAmount:    nullable(e.OtherCurrencyAmount),
		ExchangeRate:           nullable(e.ExchangeRate),
		Category:               e.Category,
		Description:            e.Description,
		SourceModule:           string(e.SourceModule),
		SourceID:               e.SourceID,
		AccountPreviousBalance: e.AccountPreviousBalance,
		AccountCurrentBalance:  e.AccountCurrentBalance,
		AccountVersion:         e.AccountVersion,
		Sequence:               e.Sequence,
		CreatedAt:              e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// RateResponse represents an exchange rate.
type RateResponse struct {
	Date      string          `json:"date"`
	Rate      decimal.Decimal `json:"rate"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// RateFromDomain converts a domain rate to response.
func RateFromDomain(r *domain.ExchangeRate) *RateResponse {
	return &RateResponse{
		Date:      r.Date.Format(domain.DateLayout),
		Rate:      r.Rate,
		CreatedAt: r.CreatedAt,
	}
}

// RatesFromDomain converts domain rates to responses.
func RatesFromDomain(rates []*domain.ExchangeRate) []*RateResponse {
	result := make([]*RateResponse, len(rates))
	for i, r := range rates {
		result[i] = RateFromDomain(r)
	}
	return result
}

// PaymentResponse represents a payment.
type PaymentResponse struct {
	ID                string           `json:"id"`
	Date              string           `json:"date"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	AmountUSD         decimal.Decimal  `json:"amount_usd"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate,omitempty"`
	PaidToBranchID    string           `json:"paid_to_branch_id"`
	PaidToAccountType string           `json:"paid_to_account_type"`
	OriginBranchID    string           `json:"origin_branch_id"`
	LinkKind          string           `json:"link_kind"`
	LinkID            string           `json:"link_id"`
	Reference         string           `json:"reference,omitempty"`
	Description       string           `json:"description,omitempty"`
	Status            string           `json:"status"`
	VerifiedBy        string           `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time       `json:"verified_at,omitempty"`
	RejectionReason   string           `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// PaymentFromDomain converts a domain payment to response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID,
		Date:              p.Date.Format(domain.DateLayout),
		Amount:            p.Amount,
		Currency:          string(p.Currency),
		AmountUSD:         p.AmountUSD,
		ExchangeRate:      nullable(p.ExchangeRate),
		PaidToBranchID:    p.PaidToBranchID,
		PaidToAccountType: string(p.PaidToAccountType),
		OriginBranchID:    p.OriginBranchID,
		LinkKind:          string(p.LinkKind),
		LinkID:            p.LinkID,
		Reference:         p.Reference,
		Description:       p.Description,
		Status:            string(p.Status),
		VerifiedBy:        p.VerifiedBy,
		VerifiedAt:        p.VerifiedAt,
		RejectionReason:   p.RejectionReason,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// VerifyPaymentResponse is the outcome of verifying a payment.
type VerifyPaymentResponse struct {
	Payment  *PaymentResponse      `json:"payment"`
	Entry    *EntryResponse        `json:"entry,omitempty"`
	Transfer *FundTransferResponse `json:"fund_transfer,omitempty"`
}

// VerifyPaymentFromResult converts a verification result to response.
func VerifyPaymentFromResult(res *usecase.VerifyPaymentResult) *VerifyPaymentResponse {
	resp := &VerifyPaymentResponse{Payment: PaymentFromDomain(res.Payment)}
	if res.Settlement != nil {
		if res.Settlement.Entry != nil {
			resp.Entry = EntryFromDomain(res.Settlement.Entry)
		}
		if res.Settlement.Transfer != nil {
			resp.Transfer = FundTransferFromDomain(res.Settlement.Transfer)
		}
	}
	return resp
}

// ExpenseResponse represents an expense and its ledger entry.
type ExpenseResponse struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	BranchID    string          `json:"branch_id"`
	AccountType string          `json:"account_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Entry       *EntryResponse  `json:"entry,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpenseFromResult converts an expense result to response.
func ExpenseFromResult(res *usecase.ExpenseResult) *ExpenseResponse {
	e := res.Expense
	resp := &ExpenseResponse{
		ID:          e.ID,
		Date:        e.Date.Format(domain.DateLayout),
		BranchID:    e.BranchID,
		AccountType: string(e.AccountType),
		Amount:      e.Amount,
		Currency:    string(e.Currency),
		Category:    e.Category,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if res.Entry != nil {
		resp.Entry = EntryFromDomain(res.Entry)
	}
	return resp
}

// FundTransferResponse represents an inter-branch fund transfer.
type FundTransferResponse struct {
	ID               string           `json:"id"`
	FromBranchID     string           `json:"from_branch_id"`
	ToBranchID       string           `json:"to_branch_id"`
	AccountType      string           `json:"account_type"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	OriginalAmount   decimal.Decimal  `json:"original_amount"`
	OriginalCurrency string           `json:"original_currency"`
	AmountUSD        decimal.Decimal  `json:"amount_usd"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate,omitempty"`
	SourceModule     string           `json:"source_module"`
	SourceID         string           `json:"source_id"`
	Status           string           `json:"status"`
	FromAccountID    string           `json:"from_account_id,omitempty"`
	ToAccountID      string           `json:"to_account_id,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// FundTransferFromDomain converts a domain transfer to response.
func FundTransferFromDomain(t *domain.FundTransfer) *FundTransferResponse {
	return &FundTransferResponse{
		ID:               t.ID,
		FromBranchID:     t.FromBranchID,
		ToBranchID:       t.ToBranchID,
		AccountType:      string(t.AccountType),
		Amount:           t.Amount,
		Currency:         string(t.Currency),
		OriginalAmount:   t.OriginalAmount,
		OriginalCurrency: string(t.OriginalCurrency),
		AmountUSD:        t.AmountUSD,
		ExchangeRate:     nullable(t.ExchangeRate),
		SourceModule:     string(t.SourceModule),
		SourceID:         t.SourceID,
		Status:           string(t.Status),
		FromAccountID:    t.FromAccountID,
		ToAccountID:      t.ToAccountID,
		Notes:            t.Notes,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

// FundTransfersFromDomain converts domain transfers to responses.
func FundTransfersFromDomain(transfers []*domain.FundTransfer) []*FundTransferResponse {
	result := make([]*FundTransferResponse, len(transfers))
	for i, t := range transfers {
		result[i] = FundTransferFromDomain(t)
	}
	return result
}

// CompleteTransferResponse is the outcome of completing a transfer.
type CompleteTransferResponse struct {
	Transfer         *FundTransferResponse `json:"fund_transfer"`
	EgressEntry      *EntryResponse        `json:"egress_entry,omitempty"`
	IngressEntry     *EntryResponse        `json:"ingress_entry,omitempty"`
	AlreadyCompleted bool                  `json:"already_completed"`
}

// CompleteTransferFromResult converts a completion result to response.
func CompleteTransferFromResult(res *usecase.CompleteTransferResult) *CompleteTransferResponse {
	resp := &CompleteTransferResponse{
		Transfer:         FundTransferFromDomain(res.Transfer),
		AlreadyCompleted: res.AlreadyCompleted,
	}
	if res.EgressEntry != nil {
		resp.EgressEntry = EntryFromDomain(res.EgressEntry)
	}
	if res.IngressEntry != nil {
		resp.IngressEntry = EntryFromDomain(res.IngressEntry)
	}
	return resp
}

// BatchFailureResponse is one transfer a batch could not complete.
type BatchFailureResponse struct {
	TransferID string `json:"transfer_id"`
	Error      string `json:"error"`
}

// CompleteBatchResponse is the outcome of a batch completion.
type CompleteBatchResponse struct {
	Completed []*FundTransferResponse `json:"completed"`
	Failed    []BatchFailureResponse  `json:"failed"`
}

// CompleteBatchFromResult converts a batch result to response.
func CompleteBatchFromResult(res *usecase.BatchResult) *CompleteBatchResponse {
	failed := make([]BatchFailureResponse, len(res.Failed))
	for i, f := range res.Failed {
		failed[i] = BatchFailureResponse{TransferID: f.TransferID, Error: f.Err.Error()}
	}
	return &CompleteBatchResponse{
		Completed: FundTransfersFromDomain(res.Completed),
		Failed:    failed,
	}
}

// PendingGroupResponse summarizes pending transfers of one group.
type PendingGroupResponse struct {
	AccountType string          `json:"account_type"`
	Currency    string          `json:"currency"`
	Count       int             `json:"count"`
	Total       decimal.Decimal `json:"total"`
	TotalUSD    decimal.Decimal `json:"total_usd"`
}

// PendingSummaryFromGroups converts pending groups to responses.
func PendingSummaryFromGroups(groups []usecase.PendingGroup) []PendingGroupResponse {
	result := make([]PendingGroupResponse, len(groups))
	for i, g := range groups {
		result[i] = PendingGroupResponse{
			AccountType: string(g.Key.AccountType),
			Currency:    string(g.Key.Currency),
			Count:       g.Count,
			Total:       g.Total,
			TotalUSD:    g.TotalUSD,
		}
	}
	return result
}

// ReconciliationResponse is the consistency check of one account.
type ReconciliationResponse struct {
	AccountID           string           `json:"account_id"`
	BranchID            string           `json:"branch_id"`
	AccountType         string           `json:"account_type"`
	Currency            string           `json:"currency"`
	RecordedBalance     decimal.Decimal  `json:"recorded_balance"`
	ProvisioningBalance decimal.Decimal  `json:"provisioning_balance"`
	EntrySum            decimal.Decimal  `json:"entry_sum"`
	CalculatedBalance   decimal.Decimal  `json:"calculated_balance"`
	Difference          decimal.Decimal  `json:"difference"`
	LatestSnapshot      *decimal.Decimal `json:"latest_snapshot,omitempty"`
	SnapshotMatches     bool             `json:"snapshot_matches"`
	IsReconciled        bool             `json:"is_reconciled"`
}

// ReconciliationReportResponse summarizes a reconciliation run.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromDomain converts a report to response.
func ReconciliationReportFromDomain(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = &ReconciliationResponse{
			AccountID:           d.AccountID,
			BranchID:            d.BranchID,
			AccountType:         string(d.AccountType),
			Currency:            string(d.Currency),
			RecordedBalance:     d.RecordedBalance,
			ProvisioningBalance: d.ProvisioningBalance,
			EntrySum:            d.EntrySum,
			CalculatedBalance:   d.CalculatedBalance,
			Difference:          d.Difference,
			LatestSnapshot:      nullable(d.LatestSnapshot),
			SnapshotMatches:     d.SnapshotMatches,
			IsReconciled:        d.IsReconciled,
		}
	}
	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		CheckedAt:          r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
