package content

import (
	"context"
	"errors"

	"offersync/internal/domain"
)

// FallbackTemplate is used when the user has neither picked a template nor
// set a default one.
var FallbackTemplate = domain.Template{
	ID:   "builtin-default",
	Name: "Default offer description",
	Sections: []domain.Section{
		{Type: domain.SectionText, Name: "intro", Prompt: "A short persuasive opening paragraph about the product, wrapped in <p>."},
		{Type: domain.SectionImage, Name: "main"},
		{Type: domain.SectionText, Name: "features", Prompt: "The key features and technical parameters as an HTML <ul> list."},
		{Type: domain.SectionText, Name: "closing", Prompt: "One closing paragraph in <p> that invites the buyer to order.", Optional: true},
	},
}

// resolveTemplate picks the explicit template, then the user's default, then
// FallbackTemplate. Lookup failures degrade to the next candidate.
func (p *Pipeline) resolveTemplate(ctx context.Context, userID, templateID string) domain.Template {
	if p.templates == nil {
		return FallbackTemplate
	}
	log := p.logger.With().Str("user_id", userID).Logger()
	if templateID != "" {
		tpl, err := p.templates.GetByID(ctx, userID, templateID)
		switch {
		case err == nil && tpl != nil:
			return *tpl
		case err == nil || errors.Is(err, domain.ErrNotFound):
			log.Warn().Str("template_id", templateID).Msg("content: template not found, using default")
		default:
			log.Warn().Err(err).Str("template_id", templateID).Msg("content: template lookup failed, using default")
		}
	}
	tpl, err := p.templates.GetDefault(ctx, userID)
	switch {
	case err == nil && tpl != nil:
		return *tpl
	case err == nil || errors.Is(err, domain.ErrNotFound):
	default:
		log.Warn().Err(err).Msg("content: default template lookup failed, using built-in")
	}
	return FallbackTemplate
}
