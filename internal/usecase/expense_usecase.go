package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/branchledger/internal/domain"
)

// ExpenseUseCase records operational expenses, each settled immediately as a
// debit on its branch account.
type ExpenseUseCase struct {
	txManager   TransactionManager
	expenseRepo ExpenseRepository
	settlement  *SettlementUseCase
	idGen       IDGenerator
	retrier     Retrier
	logger      zerolog.Logger
}

// NewExpenseUseCase creates a new ExpenseUseCase.
func NewExpenseUseCase(
	txManager TransactionManager,
	expenseRepo ExpenseRepository,
	settlement *SettlementUseCase,
	idGen IDGenerator,
) *ExpenseUseCase {
	return &ExpenseUseCase{
		txManager:   txManager,
		expenseRepo: expenseRepo,
		settlement:  settlement,
		idGen:       idGen,
		logger:      zerolog.Nop(),
	}
}

// WithRetrier sets the retrier used around each transaction.
func (uc *ExpenseUseCase) WithRetrier(r Retrier) *ExpenseUseCase {
	uc.retrier = r
	return uc
}

// WithLogger sets the logger.
func (uc *ExpenseUseCase) WithLogger(logger zerolog.Logger) *ExpenseUseCase {
	uc.logger = logger
	return uc
}

// ExpenseInput represents the entered fields of an expense.
type ExpenseInput struct {
	Date        time.Time
	Amount      decimal.Decimal
	Currency    domain.Currency
	BranchID    string
	AccountType domain.AccountType
	Category    string
	Description string
}

// ExpenseResult is an expense with the entry it settled into.
type ExpenseResult struct {
	Expense *domain.Expense
	Entry   *domain.Entry
}

// CreateExpense records and settles an expense.
func (uc *ExpenseUseCase) CreateExpense(ctx context.Context, input ExpenseInput) (*ExpenseResult, error) {
	now := time.Now().UTC()
	expense := &domain.Expense{
		ID:        uc.idGen.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyExpenseInput(expense, input)
	if err := validateExpense(expense); err != nil {
		return nil, err
	}

	var result *ExpenseResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		if err := uc.expenseRepo.Create(ctx, tx, expense); err != nil {
			return err
		}
		settled, err := uc.settlement.ApplyTx(ctx, tx, expense.SettlementEvent())
		if err != nil {
			return err
		}
		result = &ExpenseResult{Expense: expense, Entry: settled.Entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.settlement.recordApplied(result.Entry)
	return result, nil
}

// EditExpenseInput represents input for editing an expense.
type EditExpenseInput struct {
	ID string
	ExpenseInput
}

// EditExpense replaces an expense: the old entry is removed and the new one
// appended in the same transaction.
func (uc *ExpenseUseCase) EditExpense(ctx context.Context, input EditExpenseInput) (*ExpenseResult, error) {
	var result *ExpenseResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		expense, err := uc.expenseRepo.GetByIDForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}

		if _, err := uc.settlement.ReverseTx(ctx, tx, expense.SourceRef()); err != nil {
			return err
		}

		applyExpenseInput(expense, input.ExpenseInput)
		expense.UpdatedAt = time.Now().UTC()
		if err := validateExpense(expense); err != nil {
			return err
		}
		if err := uc.expenseRepo.Update(ctx, tx, expense); err != nil {
			return err
		}

		settled, err := uc.settlement.ApplyTx(ctx, tx, expense.SettlementEvent())
		if err != nil {
			return err
		}
		result = &ExpenseResult{Expense: expense, Entry: settled.Entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info().Str("expense_id", input.ID).Str("entry_id", result.Entry.ID).Msg("expense edited")
	return result, nil
}

// DeleteExpense reverses and deletes an expense.
func (uc *ExpenseUseCase) DeleteExpense(ctx context.Context, id string) error {
	var reversed *ReverseResult
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		expense, err := uc.expenseRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		reversed, err = uc.settlement.ReverseTx(ctx, tx, expense.SourceRef())
		if err != nil {
			return err
		}
		return uc.expenseRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	uc.settlement.recordReversed(reversed.Entry)
	return nil
}

// GetExpense retrieves an expense by ID.
func (uc *ExpenseUseCase) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	return uc.expenseRepo.GetByID(ctx, id)
}

func applyExpenseInput(e *domain.Expense, input ExpenseInput) {
	e.Date = domain.DateOnly(input.Date)
	e.Amount = input.Amount
	e.Currency = input.Currency
	e.BranchID = input.BranchID
	e.AccountType = input.AccountType
	e.Category = input.Category
	e.Description = input.Description
}

func validateExpense(e *domain.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return domain.ValidateDescription(e.Description)
}
