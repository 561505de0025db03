package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

// DefaultLanguages are the description languages offered when none are configured.
var DefaultLanguages = []string{"pl", "en", "de", "cs", "sk", "uk"}

// I18N stores the best supported language for the request in the context.
// X-Locale wins over Accept-Language; fallback applies when neither matches.
func I18N(fallback string, supported []string) func(http.Handler) http.Handler {
	matcher, fallbackTag := newMatcher(fallback, supported)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, matcher, fallbackTag)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newMatcher(fallback string, supported []string) (language.Matcher, language.Tag) {
	fallbackTag, err := language.Parse(fallback)
	if err != nil {
		fallbackTag = language.English
	}
	tags := []language.Tag{fallbackTag}
	for _, s := range supported {
		if tag, err := language.Parse(strings.TrimSpace(s)); err == nil && tag != fallbackTag {
			tags = append(tags, tag)
		}
	}
	return language.NewMatcher(tags), fallbackTag
}

func detectLocale(r *http.Request, matcher language.Matcher, fallback language.Tag) string {
	var prefs []language.Tag
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil {
		prefs = append(prefs, tags...)
	}
	tag := fallback
	if len(prefs) > 0 {
		matched, _, confidence := matcher.Match(prefs...)
		if confidence != language.No {
			tag = matched
		}
	}
	base, _ := tag.Base()
	return base.String()
}

// LocaleFromContext returns the request language, or "" outside I18N.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return ""
}
