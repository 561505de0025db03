package domain

import "context"

// TemplateRepository reads description templates owned by the template store.
type TemplateRepository interface {
	GetByID(ctx context.Context, userID, templateID string) (*Template, error)
	GetDefault(ctx context.Context, userID string) (*Template, error)
}
