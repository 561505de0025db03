package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/sqlinline"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type execCall struct {
	query string
	args  []any
}

// stubTx answers QueryRow by query constant and records every Exec.
type stubTx struct {
	rows      map[string]func(dest ...any) error
	execs     []execCall
	committed bool
}

func (s *stubTx) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return pgconn.CommandTag{}, nil
}

func (s *stubTx) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{scan: s.rows[query]}
}

func (s *stubTx) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *stubTx) InTx(ctx context.Context, fn func(infra.SQLExecutor) error) error {
	if err := fn(s); err != nil {
		return err
	}
	s.committed = true
	return nil
}

func walletRow(balance int64, counter int) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = "u1"
		*dest[1].(*int64) = balance
		*dest[2].(*int) = counter
		return nil
	}
}

func TestPGStoreDebit(t *testing.T) {
	tx := &stubTx{rows: map[string]func(dest ...any) error{
		sqlinline.QLockWallet: walletRow(500, 3),
		sqlinline.QInsertLedgerEntry: func(dest ...any) error {
			*dest[0].(*string) = "entry-1"
			*dest[1].(*time.Time) = time.Unix(0, 0)
			return nil
		},
	}}
	store := NewPGStore(tx)
	entry, wallet, err := store.Debit(context.Background(),
		ChargeRequest{UserID: "u1", Type: domain.LedgerDescriptionUpdate, ProductID: "job/o1"}, PriceForNextUnit)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
	if entry.ID != "entry-1" || entry.Amount != -150 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if wallet.Balance != 350 || wallet.OffersCreatedCounter != 4 {
		t.Fatalf("unexpected wallet %+v", wallet)
	}
	var updated *execCall
	for i := range tx.execs {
		if tx.execs[i].query == sqlinline.QUpdateWallet {
			updated = &tx.execs[i]
		}
	}
	if updated == nil {
		t.Fatal("wallet was not updated")
	}
	if updated.args[1].(int64) != 350 || updated.args[2].(int) != 4 {
		t.Fatalf("unexpected update args %v", updated.args)
	}
}

func TestPGStoreDebitInsufficientFunds(t *testing.T) {
	tx := &stubTx{rows: map[string]func(dest ...any) error{
		sqlinline.QLockWallet: walletRow(10, 0),
	}}
	store := NewPGStore(tx)
	_, _, err := store.Debit(context.Background(),
		ChargeRequest{UserID: "u1", Type: domain.LedgerImageUpdate}, PriceForNextUnit)
	var funds *domain.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if tx.committed {
		t.Fatal("transaction must not commit")
	}
	for _, call := range tx.execs {
		if call.query == sqlinline.QUpdateWallet {
			t.Fatal("wallet must not be updated")
		}
	}
}

func TestPGStoreWalletMissing(t *testing.T) {
	store := NewPGStore(&stubTx{rows: map[string]func(dest ...any) error{}})
	wallet, err := store.Wallet(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Wallet error: %v", err)
	}
	if wallet.UserID != "ghost" || wallet.Balance != 0 {
		t.Fatalf("unexpected wallet %+v", wallet)
	}
}
