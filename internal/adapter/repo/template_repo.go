package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/sqlinline"
)

// TemplateRepositoryPG implements domain.TemplateRepository over content_templates.
type TemplateRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewTemplateRepository creates a new template repository backed by PostgreSQL.
func NewTemplateRepository(sql infra.SQLExecutor) *TemplateRepositoryPG {
	return &TemplateRepositoryPG{sql: sql}
}

// GetByID fetches a template visible to the user: their own or a shared one.
func (r *TemplateRepositoryPG) GetByID(ctx context.Context, userID, templateID string) (*domain.Template, error) {
	id, err := uuid.Parse(templateID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.sql.QueryRow(ctx, sqlinline.QSelectTemplateByID, id, userID)
	return scanTemplate(row)
}

// GetDefault fetches the user's default template.
func (r *TemplateRepositoryPG) GetDefault(ctx context.Context, userID string) (*domain.Template, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectDefaultTemplate, userID)
	return scanTemplate(row)
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var (
		t        domain.Template
		id       uuid.UUID
		sections []byte
	)
	if err := row.Scan(&id, &t.UserID, &t.Name, &t.IsDefault, &t.Prompt, &sections); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.ID = id.String()
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &t.Sections); err != nil {
			return nil, fmt.Errorf("decode template %s sections: %w", t.ID, err)
		}
	}
	return &t, nil
}

var _ domain.TemplateRepository = (*TemplateRepositoryPG)(nil)
