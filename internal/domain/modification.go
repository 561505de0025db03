package domain

import (
	"strconv"
	"strings"
)

// Mode selects chunk sizing and the per-item flow.
type Mode string

const (
	ModeSimple  Mode = "simple"
	ModeComplex Mode = "complex"
)

// OfferStatus is the publication state requested for an offer.
type OfferStatus string

const (
	OfferStatusActive OfferStatus = "active"
	OfferStatusEnded  OfferStatus = "ended"
)

// ImageEditType enumerates the supported regeneration directives.
type ImageEditType string

const (
	ImageRemoveBackground  ImageEditType = "remove_background"
	ImageReplaceBackground ImageEditType = "replace_background"
	ImageStudio            ImageEditType = "studio"
	ImageBlurBackground    ImageEditType = "blur_background"
	ImageSquareCrop        ImageEditType = "square_crop"
	ImageResize1000        ImageEditType = "resize_1000"
	ImageResize1600        ImageEditType = "resize_1600"
	ImageBrightness        ImageEditType = "brightness"
	ImageContrast          ImageEditType = "contrast"
	ImageSharpen           ImageEditType = "sharpen"
	ImageSaturation        ImageEditType = "saturation"
	ImageGrayscale         ImageEditType = "grayscale"
	ImageVintage           ImageEditType = "vintage"
)

var knownImageEdits = map[ImageEditType]struct{}{
	ImageRemoveBackground: {}, ImageReplaceBackground: {}, ImageStudio: {},
	ImageBlurBackground: {}, ImageSquareCrop: {}, ImageResize1000: {},
	ImageResize1600: {}, ImageBrightness: {}, ImageContrast: {},
	ImageSharpen: {}, ImageSaturation: {}, ImageGrayscale: {}, ImageVintage: {},
}

// PriceChange is a new buy-now price. Amount keeps the marketplace's decimal string form.
type PriceChange struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// AIOptions requests an AI-generated description.
type AIOptions struct {
	TemplateID       string   `json:"templateId,omitempty"`
	Language         string   `json:"language,omitempty"`
	Tone             string   `json:"tone,omitempty"`
	DisabledSections []string `json:"disabledSections,omitempty"`
}

// SectionDisabled reports whether the caller switched an optional section off.
func (o AIOptions) SectionDisabled(name string) bool {
	for _, s := range o.DisabledSections {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// ImageScope selects which offer images are regenerated.
type ImageScope string

const (
	ImageScopeFirst ImageScope = "first"
	ImageScopeAll   ImageScope = "all"
)

// ImageEdit requests regeneration of offer images.
type ImageEdit struct {
	Type               ImageEditType `json:"type"`
	BackgroundPrompt   string        `json:"backgroundPrompt,omitempty"`
	BackgroundImageURL string        `json:"backgroundImageUrl,omitempty"`
	Scope              ImageScope    `json:"scope,omitempty"`
}

// Modification describes what a bulk job changes. It is validated once at job
// creation and never mutated afterwards.
type Modification struct {
	Price  *PriceChange `json:"price,omitempty"`
	Stock  *int         `json:"stock,omitempty"`
	Status *OfferStatus `json:"status,omitempty"`
	AI     *AIOptions   `json:"ai,omitempty"`
	Image  *ImageEdit   `json:"image,omitempty"`
}

// Mode reports complex when AI or image work is requested.
func (m Modification) Mode() Mode {
	if m.AI != nil || m.Image != nil {
		return ModeComplex
	}
	return ModeSimple
}

// PriceOnly reports whether the request is a pure price change.
func (m Modification) PriceOnly() bool {
	return m.Price != nil && m.Stock == nil && m.Status == nil && m.AI == nil && m.Image == nil
}

// Validate checks the request and fills defaults that do not change its meaning.
func (m *Modification) Validate(defaultCurrency string) error {
	if m == nil || (m.Price == nil && m.Stock == nil && m.Status == nil && m.AI == nil && m.Image == nil) {
		return &ValidationError{Field: "modifications", Reason: "at least one change is required"}
	}
	if m.Price != nil {
		m.Price.Amount = strings.TrimSpace(m.Price.Amount)
		amount, err := strconv.ParseFloat(m.Price.Amount, 64)
		if err != nil || amount <= 0 {
			return &ValidationError{Field: "price.amount", Reason: "must be a positive decimal"}
		}
		if idx := strings.IndexByte(m.Price.Amount, '.'); idx >= 0 && len(m.Price.Amount)-idx-1 > 2 {
			return &ValidationError{Field: "price.amount", Reason: "at most two decimal places"}
		}
		m.Price.Currency = strings.ToUpper(strings.TrimSpace(m.Price.Currency))
		if m.Price.Currency == "" {
			m.Price.Currency = defaultCurrency
		}
		if len(m.Price.Currency) != 3 {
			return &ValidationError{Field: "price.currency", Reason: "must be an ISO 4217 code"}
		}
	}
	if m.Stock != nil && *m.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if m.Status != nil && *m.Status != OfferStatusActive && *m.Status != OfferStatusEnded {
		return &ValidationError{Field: "status", Reason: "must be active or ended"}
	}
	if m.Image != nil {
		if _, ok := knownImageEdits[m.Image.Type]; !ok {
			return &ValidationError{Field: "image.type", Reason: "unsupported edit type"}
		}
		if m.Image.Type == ImageReplaceBackground &&
			strings.TrimSpace(m.Image.BackgroundPrompt) == "" && strings.TrimSpace(m.Image.BackgroundImageURL) == "" {
			return &ValidationError{Field: "image.backgroundPrompt", Reason: "replace_background needs a prompt or image"}
		}
		switch m.Image.Scope {
		case "":
			m.Image.Scope = ImageScopeFirst
		case ImageScopeFirst, ImageScopeAll:
		default:
			return &ValidationError{Field: "image.scope", Reason: "must be first or all"}
		}
	}
	return nil
}
