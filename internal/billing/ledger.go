// Package billing prices and settles billable work against a user's wallet.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/telemetry"
)

// PriceFunc prices a unit from the wallet counter read under the wallet lock.
type PriceFunc func(counter int) int64

// ChargeRequest describes one debit. Amount is positive; the ledger stores it negated.
type ChargeRequest struct {
	UserID          string
	Amount          int64
	Type            domain.LedgerType
	ProductID       string
	ExternalOfferID string
	Description     string
}

// ChargeResult reports the settled entry and the wallet afterwards.
type ChargeResult struct {
	Entry   domain.LedgerEntry
	Wallet  domain.Wallet
	Skipped bool
}

// Store persists wallets and ledger entries. Debit and Credit are atomic.
type Store interface {
	Wallet(ctx context.Context, userID string) (domain.Wallet, error)
	HasCompletedCharge(ctx context.Context, userID, productID string, typ domain.LedgerType) (bool, error)
	Debit(ctx context.Context, req ChargeRequest, price PriceFunc) (domain.LedgerEntry, domain.Wallet, error)
	Credit(ctx context.Context, userID string, amount int64, description string) (domain.LedgerEntry, domain.Wallet, error)
	Entries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

// Ledger is the billing entry point used by the batch processor and handlers.
type Ledger struct {
	store   Store
	logger  infra.Logger
	metrics *telemetry.Metrics
}

func NewLedger(store Store, logger infra.Logger, metrics *telemetry.Metrics) *Ledger {
	return &Ledger{store: store, logger: logger, metrics: metrics}
}

// Wallet returns the user's wallet. Users without one see a zero balance.
func (l *Ledger) Wallet(ctx context.Context, userID string) (domain.Wallet, error) {
	return l.store.Wallet(ctx, userID)
}

// Entries lists the most recent ledger entries, newest first.
func (l *Ledger) Entries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	return l.store.Entries(ctx, userID, limit)
}

// CheckBalance reports whether the wallet covers amount.
func (l *Ledger) CheckBalance(ctx context.Context, userID string, amount int64) (bool, int64, error) {
	wallet, err := l.store.Wallet(ctx, userID)
	if err != nil {
		return false, 0, fmt.Errorf("load wallet: %w", err)
	}
	return wallet.Balance >= amount, wallet.Balance, nil
}

// Preflight checks that the wallet covers n more units at progressive prices.
func (l *Ledger) Preflight(ctx context.Context, userID string, n int) error {
	wallet, err := l.store.Wallet(ctx, userID)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	required := PreflightCost(wallet.OffersCreatedCounter, n)
	if wallet.Balance < required {
		return &domain.InsufficientFundsError{Balance: wallet.Balance, Required: required}
	}
	return nil
}

// Charge debits a fixed amount. A completed entry with the same user, product
// and type makes the call a no-op.
func (l *Ledger) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Amount <= 0 {
		return ChargeResult{}, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	amount := req.Amount
	return l.charge(ctx, req, func(int) int64 { return amount })
}

// ChargeNextUnit debits the progressive price for the wallet's current counter.
func (l *Ledger) ChargeNextUnit(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	return l.charge(ctx, req, PriceForNextUnit)
}

// Credit tops up a wallet.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, description string) (ChargeResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ChargeResult{}, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	if amount <= 0 {
		return ChargeResult{}, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	entry, wallet, err := l.store.Credit(ctx, userID, amount, description)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("credit wallet: %w", err)
	}
	l.metrics.Charge(string(domain.LedgerTopUp), "ok")
	return ChargeResult{Entry: entry, Wallet: wallet}, nil
}

func (l *Ledger) charge(ctx context.Context, req ChargeRequest, price PriceFunc) (ChargeResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return ChargeResult{}, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	if !req.Type.CountsTowardVolume() {
		return ChargeResult{}, &domain.ValidationError{Field: "type", Reason: "not a billable operation"}
	}
	log := l.logger.With().
		Str("user_id", req.UserID).
		Str("product_id", req.ProductID).
		Str("type", string(req.Type)).
		Logger()

	if req.ProductID != "" {
		done, err := l.store.HasCompletedCharge(ctx, req.UserID, req.ProductID, req.Type)
		if err != nil {
			l.metrics.Charge(string(req.Type), "error")
			return ChargeResult{}, fmt.Errorf("%w: idempotency lookup: %v", domain.ErrChargeFailed, err)
		}
		if done {
			log.Info().Msg("billing: charge already settled, skipping")
			l.metrics.ChargeSkipped(string(req.Type))
			return ChargeResult{Skipped: true}, nil
		}
	}

	entry, wallet, err := l.store.Debit(ctx, req, price)
	if err != nil {
		var funds *domain.InsufficientFundsError
		if errors.As(err, &funds) {
			log.Warn().Int64("balance", funds.Balance).Int64("required", funds.Required).Msg("billing: insufficient funds")
			l.metrics.Charge(string(req.Type), "insufficient_funds")
			return ChargeResult{}, funds
		}
		log.Error().Err(err).Msg("billing: charge failed")
		l.metrics.Charge(string(req.Type), "error")
		return ChargeResult{}, fmt.Errorf("%w: %v", domain.ErrChargeFailed, err)
	}
	log.Debug().Int64("amount", -entry.Amount).Int64("balance", wallet.Balance).Msg("billing: charged")
	l.metrics.Charge(string(req.Type), "ok")
	return ChargeResult{Entry: entry, Wallet: wallet}, nil
}
