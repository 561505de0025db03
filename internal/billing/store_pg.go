package billing

import (
	"context"
	"fmt"
	"time"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/sqlinline"
)

// PGStore keeps wallets and ledger entries in Postgres. Every balance change
// runs in one transaction holding the wallet row lock.
type PGStore struct {
	sql infra.TxExecutor
}

func NewPGStore(sql infra.TxExecutor) *PGStore {
	return &PGStore{sql: sql}
}

func (s *PGStore) Wallet(ctx context.Context, userID string) (domain.Wallet, error) {
	wallet := domain.Wallet{UserID: userID}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectWallet, userID)
	if err := row.Scan(&wallet.UserID, &wallet.Balance, &wallet.OffersCreatedCounter); err != nil {
		if infra.IsNoRows(err) {
			return domain.Wallet{UserID: userID}, nil
		}
		return domain.Wallet{}, err
	}
	return wallet, nil
}

func (s *PGStore) HasCompletedCharge(ctx context.Context, userID, productID string, typ domain.LedgerType) (bool, error) {
	var exists bool
	if err := s.sql.QueryRow(ctx, sqlinline.QCompletedChargeExists, userID, productID, string(typ)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PGStore) Debit(ctx context.Context, req ChargeRequest, price PriceFunc) (domain.LedgerEntry, domain.Wallet, error) {
	var (
		entry  domain.LedgerEntry
		wallet domain.Wallet
	)
	err := s.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		locked, err := lockWallet(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		amount := price(locked.OffersCreatedCounter)
		if locked.Balance < amount {
			return &domain.InsufficientFundsError{Balance: locked.Balance, Required: amount}
		}
		locked.Balance -= amount
		if req.Type.CountsTowardVolume() {
			locked.OffersCreatedCounter++
		}
		if _, err := tx.Exec(ctx, sqlinline.QUpdateWallet, locked.UserID, locked.Balance, locked.OffersCreatedCounter); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		entry = domain.LedgerEntry{
			UserID:          req.UserID,
			Type:            req.Type,
			Amount:          -amount,
			Status:          domain.LedgerCompleted,
			ProductID:       req.ProductID,
			ExternalOfferID: req.ExternalOfferID,
			Description:     req.Description,
		}
		if err := insertEntry(ctx, tx, &entry); err != nil {
			return err
		}
		wallet = locked
		return nil
	})
	if err != nil {
		return domain.LedgerEntry{}, domain.Wallet{}, err
	}
	return entry, wallet, nil
}

func (s *PGStore) Credit(ctx context.Context, userID string, amount int64, description string) (domain.LedgerEntry, domain.Wallet, error) {
	var (
		entry  domain.LedgerEntry
		wallet domain.Wallet
	)
	err := s.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		locked, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		locked.Balance += amount
		if _, err := tx.Exec(ctx, sqlinline.QUpdateWallet, locked.UserID, locked.Balance, locked.OffersCreatedCounter); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		entry = domain.LedgerEntry{
			UserID:      userID,
			Type:        domain.LedgerTopUp,
			Amount:      amount,
			Status:      domain.LedgerCompleted,
			Description: description,
		}
		if err := insertEntry(ctx, tx, &entry); err != nil {
			return err
		}
		wallet = locked
		return nil
	})
	if err != nil {
		return domain.LedgerEntry{}, domain.Wallet{}, err
	}
	return entry, wallet, nil
}

func (s *PGStore) Entries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListLedgerEntries, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e           domain.LedgerEntry
			typ, status string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.Amount, &status, &e.ProductID, &e.ExternalOfferID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = domain.LedgerType(typ)
		e.Status = domain.LedgerStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func lockWallet(ctx context.Context, tx infra.SQLExecutor, userID string) (domain.Wallet, error) {
	if _, err := tx.Exec(ctx, sqlinline.QEnsureWallet, userID); err != nil {
		return domain.Wallet{}, fmt.Errorf("ensure wallet: %w", err)
	}
	var w domain.Wallet
	if err := tx.QueryRow(ctx, sqlinline.QLockWallet, userID).Scan(&w.UserID, &w.Balance, &w.OffersCreatedCounter); err != nil {
		return domain.Wallet{}, fmt.Errorf("lock wallet: %w", err)
	}
	return w, nil
}

func insertEntry(ctx context.Context, tx infra.SQLExecutor, e *domain.LedgerEntry) error {
	var createdAt time.Time
	row := tx.QueryRow(ctx, sqlinline.QInsertLedgerEntry,
		e.UserID, string(e.Type), e.Amount, string(e.Status), e.ProductID, e.ExternalOfferID, e.Description)
	if err := row.Scan(&e.ID, &createdAt); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	e.CreatedAt = createdAt
	return nil
}

var _ Store = (*PGStore)(nil)
