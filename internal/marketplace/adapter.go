// Package marketplace talks to the external listing platform.
//
// The HTTP adapter speaks a generic JSON contract; anything vendor-specific
// belongs behind the Adapter interface.
package marketplace

import (
	"context"
	"time"

	"offersync/internal/domain"
)

// Auth carries a user's marketplace credentials.
type Auth struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Patch is a partial offer update. Nil fields are left untouched.
type Patch struct {
	Price       *domain.PriceChange `json:"price,omitempty"`
	Stock       *int                `json:"stock,omitempty"`
	Status      *domain.OfferStatus `json:"status,omitempty"`
	Description *string             `json:"description,omitempty"`
	Images      []string            `json:"images,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Price == nil && p.Stock == nil && p.Status == nil && p.Description == nil && p.Images == nil
}

type UpdateResult struct {
	OfferID  string   `json:"id"`
	Warnings []string `json:"warnings,omitempty"`
}

// PriceCommand is an asynchronous price change accepted by the marketplace.
type PriceCommand struct {
	ID string `json:"id"`
}

// CommandStatus summarizes the tasks of a price command.
type CommandStatus struct {
	ID      string
	Total   int
	Success int
	Failed  int
	Errors  []string
}

// Done reports whether every task of the command has settled.
func (c CommandStatus) Done() bool {
	return c.Total > 0 && c.Success+c.Failed >= c.Total
}

// Adapter is the marketplace surface the batch processor depends on.
type Adapter interface {
	// GetOffer returns nil, nil when the offer does not exist.
	GetOffer(ctx context.Context, auth Auth, id string) (*domain.Offer, error)
	UpdateOffer(ctx context.Context, auth Auth, id string, patch Patch) (UpdateResult, error)
	ChangePrice(ctx context.Context, auth Auth, id string, amount, currency string) (PriceCommand, error)
	CheckPriceChangeCommand(ctx context.Context, auth Auth, commandID string) (CommandStatus, error)
	// UploadImage accepts a local file path or a public URL and returns the
	// marketplace-hosted image URL.
	UploadImage(ctx context.Context, auth Auth, pathOrURL string) (string, error)
	RefreshToken(ctx context.Context, auth Auth) (Auth, error)
}
