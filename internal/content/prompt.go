package content

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"offersync/internal/domain"
)

const systemPrompt = "You write product descriptions for online marketplace listings. " +
	"Use only facts present in the product data. Never invent certifications, prices or warranties."

type requestedSection struct {
	index   int
	section domain.Section
}

func sectionKey(index int) string {
	return fmt.Sprintf("section_%d", index)
}

// languageName renders a BCP 47 tag as an English language name, falling
// back to the raw input for tags it cannot parse.
func languageName(tag string) string {
	tag = strings.TrimSpace(tag)
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return tag
}

func formatParameters(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, params[k]))
	}
	return strings.Join(lines, "\n")
}

func writeProductContext(b *strings.Builder, offer domain.Offer) {
	fmt.Fprintf(b, "Product name: %s\n", offer.Name)
	if offer.Category != "" {
		fmt.Fprintf(b, "Category: %s\n", offer.Category)
	}
	if params := formatParameters(offer.Parameters); params != "" {
		b.WriteString("Parameters:\n")
		b.WriteString(params)
		b.WriteString("\n")
	}
	if desc := strings.TrimSpace(offer.Description); desc != "" {
		b.WriteString("Current description:\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}
}

func buildStructuredPrompt(offer domain.Offer, sections []requestedSection, lang, tone string) string {
	var b strings.Builder
	writeProductContext(&b, offer)
	fmt.Fprintf(&b, "\nWrite in %s.", languageName(lang))
	if tone != "" {
		fmt.Fprintf(&b, " Tone: %s.", tone)
	}
	b.WriteString("\nReturn only a JSON object. Each key below maps to an HTML fragment for that part of the description:\n")
	for _, rs := range sections {
		instruction := strings.TrimSpace(rs.section.Prompt)
		if instruction == "" {
			instruction = rs.section.Name
		}
		fmt.Fprintf(&b, "- %q: %s\n", sectionKey(rs.index), instruction)
	}
	return b.String()
}

func buildLegacyPrompt(tpl string, offer domain.Offer, lang, tone string) string {
	r := strings.NewReplacer(
		"{{name}}", offer.Name,
		"{{description}}", strings.TrimSpace(offer.Description),
		"{{category}}", offer.Category,
		"{{parameters}}", formatParameters(offer.Parameters),
		"{{language}}", languageName(lang),
		"{{tone}}", tone,
	)
	return r.Replace(tpl)
}
