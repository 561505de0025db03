package domain

import "time"

// LedgerType enumerates billable operations.
type LedgerType string

const (
	LedgerDescriptionUpdate LedgerType = "description_update"
	LedgerImageUpdate       LedgerType = "image_update"
	LedgerTopUp             LedgerType = "top_up"
)

// CountsTowardVolume reports whether a charge of this type advances the
// progressive pricing counter.
func (t LedgerType) CountsTowardVolume() bool {
	return t == LedgerDescriptionUpdate || t == LedgerImageUpdate
}

// LedgerStatus is the settlement state of an entry.
type LedgerStatus string

const (
	LedgerCompleted LedgerStatus = "completed"
	LedgerFailed    LedgerStatus = "failed"
)

// Wallet holds a user's prepaid balance in minor currency units.
type Wallet struct {
	UserID               string `json:"userId"`
	Balance              int64  `json:"balance"`
	OffersCreatedCounter int    `json:"offersCreatedCounter"`
}

// LedgerEntry is an immutable, append-only billing record.
type LedgerEntry struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	Type            LedgerType   `json:"type"`
	Amount          int64        `json:"amount"`
	Status          LedgerStatus `json:"status"`
	ProductID       string       `json:"productId,omitempty"`
	ExternalOfferID string       `json:"externalOfferId,omitempty"`
	Description     string       `json:"description"`
	CreatedAt       time.Time    `json:"createdAt"`
}
