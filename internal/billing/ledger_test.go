package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offersync/internal/domain"
)

func newTestLedger(w domain.Wallet) (*Ledger, *MemoryStore) {
	store := NewMemoryStore()
	store.Seed(w)
	return NewLedger(store, zerolog.Nop(), nil), store
}

func TestChargeNextUnitDebitsAndCounts(t *testing.T) {
	ledger, _ := newTestLedger(domain.Wallet{UserID: "u1", Balance: 1000, OffersCreatedCounter: 99})
	ctx := context.Background()

	res, err := ledger.ChargeNextUnit(ctx, ChargeRequest{UserID: "u1", Type: domain.LedgerDescriptionUpdate, ProductID: "job/1"})
	require.NoError(t, err)
	assert.Equal(t, int64(-150), res.Entry.Amount)
	assert.Equal(t, int64(850), res.Wallet.Balance)
	assert.Equal(t, 100, res.Wallet.OffersCreatedCounter)

	res, err = ledger.ChargeNextUnit(ctx, ChargeRequest{UserID: "u1", Type: domain.LedgerImageUpdate, ProductID: "job/2"})
	require.NoError(t, err)
	assert.Equal(t, int64(-120), res.Entry.Amount, "second unit lands in the next tier")
}

func TestChargeIsIdempotentPerProductAndType(t *testing.T) {
	ledger, store := newTestLedger(domain.Wallet{UserID: "u1", Balance: 1000})
	ctx := context.Background()
	req := ChargeRequest{UserID: "u1", Type: domain.LedgerDescriptionUpdate, ProductID: "job/1", Amount: 100}

	_, err := ledger.Charge(ctx, req)
	require.NoError(t, err)
	again, err := ledger.Charge(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	wallet, _ := store.Wallet(ctx, "u1")
	assert.Equal(t, int64(900), wallet.Balance)
	assert.Equal(t, 1, wallet.OffersCreatedCounter)

	// A different type for the same product is a separate charge.
	req.Type = domain.LedgerImageUpdate
	other, err := ledger.Charge(ctx, req)
	require.NoError(t, err)
	assert.False(t, other.Skipped)
}

func TestChargeInsufficientFundsLeavesWalletUntouched(t *testing.T) {
	ledger, store := newTestLedger(domain.Wallet{UserID: "u1", Balance: 100, OffersCreatedCounter: 7})
	ctx := context.Background()

	_, err := ledger.ChargeNextUnit(ctx, ChargeRequest{UserID: "u1", Type: domain.LedgerDescriptionUpdate, ProductID: "job/1"})
	var funds *domain.InsufficientFundsError
	require.True(t, errors.As(err, &funds))
	assert.Equal(t, int64(100), funds.Balance)
	assert.Equal(t, int64(150), funds.Required)
	assert.Equal(t, domain.FailureInsufficientFunds, domain.FailureKindOf(err))

	wallet, _ := store.Wallet(ctx, "u1")
	assert.Equal(t, int64(100), wallet.Balance)
	assert.Equal(t, 7, wallet.OffersCreatedCounter)
	entries, _ := store.Entries(ctx, "u1", 10)
	assert.Empty(t, entries)
}

func TestChargeRejectsNonBillableType(t *testing.T) {
	ledger, _ := newTestLedger(domain.Wallet{UserID: "u1", Balance: 100})
	_, err := ledger.Charge(context.Background(), ChargeRequest{UserID: "u1", Type: domain.LedgerTopUp, Amount: 10})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestPreflightAndCheckBalance(t *testing.T) {
	ledger, _ := newTestLedger(domain.Wallet{UserID: "u1", Balance: 400, OffersCreatedCounter: 98})
	ctx := context.Background()

	require.NoError(t, ledger.Preflight(ctx, "u1", 3)) // 150+150+120
	err := ledger.Preflight(ctx, "u1", 4)
	var funds *domain.InsufficientFundsError
	require.True(t, errors.As(err, &funds))
	assert.Equal(t, int64(540), funds.Required)

	ok, balance, err := ledger.CheckBalance(ctx, "u1", 401)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(400), balance)
}

func TestCreditWritesTopUp(t *testing.T) {
	ledger, _ := newTestLedger(domain.Wallet{UserID: "u1"})
	ctx := context.Background()
	res, err := ledger.Credit(ctx, "u1", 5000, "manual top-up")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), res.Wallet.Balance)
	assert.Equal(t, domain.LedgerTopUp, res.Entry.Type)
	assert.Equal(t, 0, res.Wallet.OffersCreatedCounter)

	entries, err := ledger.Entries(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5000), entries[0].Amount)
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Debit(context.Context, ChargeRequest, PriceFunc) (domain.LedgerEntry, domain.Wallet, error) {
	return domain.LedgerEntry{}, domain.Wallet{}, errors.New("connection reset")
}

func TestChargeWrapsStoreFailures(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	ledger := NewLedger(store, zerolog.Nop(), nil)
	_, err := ledger.Charge(context.Background(), ChargeRequest{UserID: "u1", Type: domain.LedgerImageUpdate, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrChargeFailed)
}
