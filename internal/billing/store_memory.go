package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"offersync/internal/domain"
)

// MemoryStore is an in-process Store for tests and local runs without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	wallets map[string]domain.Wallet
	entries []domain.LedgerEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]domain.Wallet), now: time.Now}
}

// Seed sets a wallet directly.
func (s *MemoryStore) Seed(w domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.UserID] = w
}

func (s *MemoryStore) Wallet(_ context.Context, userID string) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletLocked(userID), nil
}

func (s *MemoryStore) HasCompletedCharge(_ context.Context, userID, productID string, typ domain.LedgerType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.UserID == userID && e.ProductID == productID && e.Type == typ && e.Status == domain.LedgerCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Debit(_ context.Context, req ChargeRequest, price PriceFunc) (domain.LedgerEntry, domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(req.UserID)
	amount := price(w.OffersCreatedCounter)
	if w.Balance < amount {
		return domain.LedgerEntry{}, domain.Wallet{}, &domain.InsufficientFundsError{Balance: w.Balance, Required: amount}
	}
	w.Balance -= amount
	if req.Type.CountsTowardVolume() {
		w.OffersCreatedCounter++
	}
	s.wallets[w.UserID] = w
	entry := s.appendLocked(domain.LedgerEntry{
		UserID:          req.UserID,
		Type:            req.Type,
		Amount:          -amount,
		Status:          domain.LedgerCompleted,
		ProductID:       req.ProductID,
		ExternalOfferID: req.ExternalOfferID,
		Description:     req.Description,
	})
	return entry, w, nil
}

func (s *MemoryStore) Credit(_ context.Context, userID string, amount int64, description string) (domain.LedgerEntry, domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(userID)
	w.Balance += amount
	s.wallets[userID] = w
	entry := s.appendLocked(domain.LedgerEntry{
		UserID:      userID,
		Type:        domain.LedgerTopUp,
		Amount:      amount,
		Status:      domain.LedgerCompleted,
		Description: description,
	})
	return entry, w, nil
}

func (s *MemoryStore) Entries(_ context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, s.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) walletLocked(userID string) domain.Wallet {
	w, ok := s.wallets[userID]
	if !ok {
		w = domain.Wallet{UserID: userID}
	}
	return w
}

func (s *MemoryStore) appendLocked(e domain.LedgerEntry) domain.LedgerEntry {
	e.ID = uuid.NewString()
	e.CreatedAt = s.now()
	s.entries = append(s.entries, e)
	return e
}

var _ Store = (*MemoryStore)(nil)
