package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
)

// PaymentUseCase is the verification gate in front of settlement.
type PaymentUseCase struct {
	txManager   TransactionManager
	paymentRepo PaymentRepository
	accounts    *AccountUseCase
	rates       RateResolver
	settlement  *SettlementUseCase
	outbox      outboxWriter
	idGen       IDGenerator
	retrier     Retrier
	obs         observer
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	paymentRepo PaymentRepository,
	accounts *AccountUseCase,
	rates RateResolver,
	settlement *SettlementUseCase,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:   txManager,
		paymentRepo: paymentRepo,
		accounts:    accounts,
		rates:       rates,
		settlement:  settlement,
		outbox:      outboxWriter{repo: outboxRepo, idGen: idGen},
		idGen:       idGen,
		obs:         newObserver(),
	}
}

// WithRetrier sets the retrier used around each transaction.
func (uc *PaymentUseCase) WithRetrier(r Retrier) *PaymentUseCase {
	uc.retrier = r
	return uc
}

// WithLogger sets the logger.
func (uc *PaymentUseCase) WithLogger(logger zerolog.Logger) *PaymentUseCase {
	uc.obs.logger = logger
	return uc
}

// WithMetrics sets the metrics.
func (uc *PaymentUseCase) WithMetrics(m *metrics.Metrics) *PaymentUseCase {
	uc.obs.metrics = m
	return uc
}

// CreatePaymentInput represents input for registering a payment.
// OriginBranchID defaults to PaidToBranchID.
type CreatePaymentInput struct {
	Date              time.Time
	Amount            decimal.Decimal
	Currency          domain.Currency
	PaidToBranchID    string
	PaidToAccountType domain.AccountType
	OriginBranchID    string
	LinkKind          domain.LinkKind
	LinkID            string
	Reference         string
	Description       string
}

// CreatePayment registers a pending payment. Balances are untouched until
// the payment is verified.
func (uc *PaymentUseCase) CreatePayment(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error) {
	now := time.Now().UTC()

	payment := &domain.Payment{
		ID:        uc.idGen.Generate(),
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	uc.applyInput(payment, input)

	if err := uc.prepare(ctx, payment); err != nil {
		return nil, err
	}

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		return uc.paymentRepo.Create(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	uc.obs.logger.Info().Str("payment_id", payment.ID).Str("amount", payment.Amount.String()).
		Str("currency", string(payment.Currency)).Msg("payment registered")
	return payment, nil
}

// EditPaymentInput represents input for editing a pending payment.
type EditPaymentInput struct {
	ID string
	CreatePaymentInput
}

// EditPayment replaces the entered fields of a pending payment.
func (uc *PaymentUseCase) EditPayment(ctx context.Context, input EditPaymentInput) (*domain.Payment, error) {
	var payment *domain.Payment
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		payment, err = uc.paymentRepo.GetByIDForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if err := payment.CanTransition(domain.PaymentActionEdit); err != nil {
			return err
		}

		uc.applyInput(payment, input.CreatePaymentInput)
		payment.UpdatedAt = time.Now().UTC()
		if err := uc.prepare(ctx, payment); err != nil {
			return err
		}

		return uc.paymentRepo.Update(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	uc.countTransition(domain.PaymentActionEdit)
	return payment, nil
}

// VerifyPaymentResult is a verified payment with its settlement.
type VerifyPaymentResult struct {
	Payment    *domain.Payment
	Settlement *SettlementResult
}

// VerifyPayment verifies a pending payment and settles it in the same
// transaction. The verifier is taken from ctx.
func (uc *PaymentUseCase) VerifyPayment(ctx context.Context, id string) (*VerifyPaymentResult, error) {
	start := time.Now()
	actor := actorName(ctx)

	var result *VerifyPaymentResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		payment, err := uc.paymentRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := payment.Verify(actor, time.Now().UTC()); err != nil {
			return err
		}

		settled, err := uc.settlement.ApplyTx(ctx, tx, payment.SettlementEvent())
		if err != nil {
			return err
		}

		if err := uc.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}

		if err := uc.outbox.emit(ctx, tx, domain.AggregateTypePayment, payment.ID,
			domain.EventTypePaymentVerified, domain.PaymentPayload(payment)); err != nil {
			return err
		}

		result = &VerifyPaymentResult{Payment: payment, Settlement: settled}
		return nil
	})
	uc.obs.observe("payment.verify", start, err)
	if err != nil {
		return nil, err
	}

	uc.countTransition(domain.PaymentActionVerify)
	uc.settlement.recordApplied(result.Settlement.Entry)
	uc.obs.logger.Info().Str("payment_id", id).Str("verified_by", actor).Msg("payment verified")
	return result, nil
}

// RejectPayment rejects a pending payment. Balances are untouched.
func (uc *PaymentUseCase) RejectPayment(ctx context.Context, id, reason string) (*domain.Payment, error) {
	if err := domain.ValidateDescription(reason); err != nil {
		return nil, err
	}
	actor := actorName(ctx)

	var payment *domain.Payment
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		payment, err = uc.paymentRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := payment.Reject(actor, reason, time.Now().UTC()); err != nil {
			return err
		}
		if err := uc.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}
		return uc.outbox.emit(ctx, tx, domain.AggregateTypePayment, payment.ID,
			domain.EventTypePaymentRejected, domain.PaymentPayload(payment))
	})
	if err != nil {
		return nil, err
	}

	uc.countTransition(domain.PaymentActionReject)
	return payment, nil
}

// DeletePayment deletes a payment, reversing its settlement first when it
// was verified.
func (uc *PaymentUseCase) DeletePayment(ctx context.Context, id string) error {
	var reversed *ReverseResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		payment, err := uc.paymentRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := payment.CanTransition(domain.PaymentActionDelete); err != nil {
			return err
		}

		reversed = nil
		if payment.Status == domain.PaymentStatusVerified {
			reversed, err = uc.settlement.ReverseTx(ctx, tx, payment.SourceRef())
			if err != nil {
				return err
			}
		}

		return uc.paymentRepo.Delete(ctx, tx, payment.ID)
	})
	if err != nil {
		return err
	}

	uc.countTransition(domain.PaymentActionDelete)
	if reversed != nil {
		uc.settlement.recordReversed(reversed.Entry)
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (uc *PaymentUseCase) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return uc.paymentRepo.GetByID(ctx, id)
}

// ListPayments lists payments, filtered by status when it is not empty.
func (uc *PaymentUseCase) ListPayments(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]*domain.Payment, error) {
	limit, offset = domain.ClampPage(limit, offset)
	return uc.paymentRepo.List(ctx, status, limit, offset)
}

func (uc *PaymentUseCase) applyInput(p *domain.Payment, input CreatePaymentInput) {
	p.Date = domain.DateOnly(input.Date)
	p.Amount = input.Amount
	p.Currency = input.Currency
	p.PaidToBranchID = input.PaidToBranchID
	p.PaidToAccountType = input.PaidToAccountType
	p.OriginBranchID = input.OriginBranchID
	if p.OriginBranchID == "" {
		p.OriginBranchID = input.PaidToBranchID
	}
	p.LinkKind = input.LinkKind
	p.LinkID = input.LinkID
	p.Reference = input.Reference
	p.Description = input.Description
}

// prepare validates the payment, checks its account exists and prices it in
// USD at the rate of its date.
func (uc *PaymentUseCase) prepare(ctx context.Context, p *domain.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := domain.ValidateDescription(p.Description); err != nil {
		return err
	}

	if _, err := uc.accounts.GetAccount(ctx, p.PaidToBranchID, p.PaidToAccountType); err != nil {
		return err
	}

	rate, err := uc.rates.RateFor(ctx, p.Date)
	if err != nil {
		return err
	}

	amountUSD, err := domain.ToUSD(p.Amount, p.Currency, rate)
	if err != nil {
		return err
	}
	p.AmountUSD = amountUSD

	p.ExchangeRate = decimal.NullDecimal{}
	if rate.IsPositive() {
		p.ExchangeRate = decimal.NewNullDecimal(rate)
	}
	return nil
}

func (uc *PaymentUseCase) countTransition(action domain.PaymentAction) {
	if uc.obs.metrics != nil {
		uc.obs.metrics.PaymentTransitions.WithLabelValues(string(action)).Inc()
	}
}
