// Package content generates offer descriptions from templates through the
// configured text providers.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/providers"
)

// GenerateInput is one description request.
type GenerateInput struct {
	UserID  string
	Offer   domain.Offer
	Options domain.AIOptions
}

// BulkResult is the outcome for one offer of GenerateBulk.
type BulkResult struct {
	Description string
	Err         error
}

type Pipeline struct {
	templates       domain.TemplateRepository
	generator       providers.TextGenerator
	workers         int
	defaultLanguage string
	logger          infra.Logger
}

// NewPipeline wires the template store and text generator. templates may be nil.
func NewPipeline(templates domain.TemplateRepository, generator providers.TextGenerator, workers int, defaultLanguage string, logger infra.Logger) *Pipeline {
	if workers <= 0 {
		workers = 5
	}
	if defaultLanguage == "" {
		defaultLanguage = "pl"
	}
	return &Pipeline{
		templates:       templates,
		generator:       generator,
		workers:         workers,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

// Generate produces the HTML description for one offer.
func (p *Pipeline) Generate(ctx context.Context, in GenerateInput) (string, error) {
	tpl := p.resolveTemplate(ctx, in.UserID, in.Options.TemplateID)
	lang := in.Options.Language
	if lang == "" {
		lang = p.defaultLanguage
	}
	if tpl.Structured() {
		return p.generateStructured(ctx, tpl, in, lang)
	}
	return p.generateLegacy(ctx, tpl, in, lang)
}

// GenerateBulk runs Generate for each offer independently. One offer's
// failure never affects another.
func (p *Pipeline) GenerateBulk(ctx context.Context, userID string, offers []domain.Offer, opts domain.AIOptions) map[string]BulkResult {
	results := make(map[string]BulkResult, len(offers))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, offer := range offers {
		g.Go(func() error {
			desc, err := p.Generate(ctx, GenerateInput{UserID: userID, Offer: offer, Options: opts})
			mu.Lock()
			results[offer.ID] = BulkResult{Description: desc, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) generateStructured(ctx context.Context, tpl domain.Template, in GenerateInput, lang string) (string, error) {
	var (
		kept      []requestedSection
		requested []requestedSection
	)
	for i, s := range tpl.Sections {
		if s.Optional && in.Options.SectionDisabled(s.Name) {
			continue
		}
		rs := requestedSection{index: i, section: s}
		kept = append(kept, rs)
		if s.Type != domain.SectionImage {
			requested = append(requested, rs)
		}
	}
	if len(requested) == 0 {
		return "", &domain.GenerationError{Reason: "template has no text sections to generate"}
	}

	prompt := buildStructuredPrompt(in.Offer, requested, lang, in.Options.Tone)
	raw, err := p.generator.GenerateText(ctx, prompt, providers.TextOptions{System: systemPrompt, JSON: true, Temperature: 0.7})
	if err != nil {
		return "", fmt.Errorf("generate description: %w", err)
	}

	values, ok := parseSections(raw)
	if !ok {
		p.logger.Warn().Str("offer_id", in.Offer.ID).Msg("content: response was not a JSON object, using raw text")
		values = map[string]string{sectionKey(requested[0].index): providers.TrimCodeFence(raw)}
	}

	html, hasText := assemble(kept, values)
	if !hasText {
		return "", &domain.GenerationError{Reason: "provider returned no description text"}
	}
	return html, nil
}

func (p *Pipeline) generateLegacy(ctx context.Context, tpl domain.Template, in GenerateInput, lang string) (string, error) {
	prompt := buildLegacyPrompt(tpl.Prompt, in.Offer, lang, in.Options.Tone)
	raw, err := p.generator.GenerateText(ctx, prompt, providers.TextOptions{System: systemPrompt, Temperature: 0.7})
	if err != nil {
		return "", fmt.Errorf("generate description: %w", err)
	}
	text := providers.TrimCodeFence(raw)
	if text == "" {
		return "", &domain.GenerationError{Reason: "provider returned no description text"}
	}
	return text, nil
}

// parseSections decodes the outermost JSON object of raw. Non-string values
// are kept in their JSON form.
func parseSections(raw string) (map[string]string, bool) {
	fragment := providers.ExtractJSONObject(raw)
	if fragment == "" {
		return nil, false
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &decoded); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(decoded))
	for k, v := range decoded {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out, true
}

func assemble(sections []requestedSection, values map[string]string) (string, bool) {
	var (
		parts   []string
		hasText bool
	)
	for _, rs := range sections {
		if rs.section.Type == domain.SectionImage {
			parts = append(parts, fmt.Sprintf("<!-- image:%s -->", rs.section.Name))
			continue
		}
		text := strings.TrimSpace(values[sectionKey(rs.index)])
		if text == "" {
			continue
		}
		hasText = true
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), hasText
}
