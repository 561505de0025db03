package domain

// Offer is the vendor-neutral view of a marketplace listing.
type Offer struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Price       string            `json:"price,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Stock       int               `json:"stock"`
	Status      OfferStatus       `json:"status,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}
