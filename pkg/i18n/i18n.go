// Package i18n renders the user-facing minimum messages in the caller's
// language. English is the fallback.
package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a translatable message.
type Key string

const (
	// KeyMinimumQuantity takes line name, quantity and minimum.
	KeyMinimumQuantity Key = "minimum_quantity"
	// KeyMinimumAmount takes total, sale name and minimum.
	KeyMinimumAmount Key = "minimum_amount"
	// KeyMinimumQuantityWarning takes product name, quantity and minimum.
	KeyMinimumQuantityWarning Key = "minimum_quantity_warning"
)

var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.Catalan,
}

var messages = map[language.Tag]map[Key]string{
	language.English: {
		KeyMinimumQuantity:        `Quantity %[2]s of line "%[1]s" is lower than the minimum quantity %[3]s.`,
		KeyMinimumAmount:          `Total amount %[1]s of sale "%[2]s" is lower than the minimum amount %[3]s.`,
		KeyMinimumQuantityWarning: `Product "%[1]s" has quantity %[2]s, lower than its minimum quantity %[3]s.`,
	},
	language.Spanish: {
		KeyMinimumQuantity:        `La cantidad %[2]s de la línea "%[1]s" es inferior a la cantidad mínima %[3]s.`,
		KeyMinimumAmount:          `El importe total %[1]s de la venta "%[2]s" es inferior al importe mínimo %[3]s.`,
		KeyMinimumQuantityWarning: `El producto "%[1]s" tiene una cantidad %[2]s, inferior a su cantidad mínima %[3]s.`,
	},
	language.Catalan: {
		KeyMinimumQuantity:        `La quantitat %[2]s de la línia "%[1]s" és inferior a la quantitat mínima %[3]s.`,
		KeyMinimumAmount:          `L'import total %[1]s de la venda "%[2]s" és inferior a l'import mínim %[3]s.`,
		KeyMinimumQuantityWarning: `El producte "%[1]s" té una quantitat %[2]s, inferior a la seva quantitat mínima %[3]s.`,
	},
}

// Translator renders catalog messages for a negotiated language.
type Translator struct {
	catalog *catalog.Builder
	matcher language.Matcher
}

// New builds a Translator with the bundled catalogs.
func New() (*Translator, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := builder.SetString(tag, string(key), msg); err != nil {
				return nil, err
			}
		}
	}
	return &Translator{
		catalog: builder,
		matcher: language.NewMatcher(supported),
	}, nil
}

// Default returns a Translator and panics if the bundled catalog is invalid.
func Default() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

// Match negotiates the best supported language for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) language.Tag {
	if t == nil || strings.TrimSpace(acceptLanguage) == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

// Sprintf renders key in tag, falling back to English.
func (t *Translator) Sprintf(tag language.Tag, key Key, args ...any) string {
	if t == nil {
		return message.NewPrinter(language.English).Sprintf(string(key), args...)
	}
	printer := message.NewPrinter(tag, message.Catalog(t.catalog))
	return printer.Sprintf(string(key), args...)
}

// Translate renders key in the language stored on ctx.
func (t *Translator) Translate(ctx context.Context, key Key, args ...any) string {
	return t.Sprintf(LanguageFromContext(ctx), key, args...)
}

type ctxKey struct{}

// WithLanguage stores the negotiated language on ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, tag)
}

// LanguageFromContext returns the negotiated language, English when unset.
func LanguageFromContext(ctx context.Context) language.Tag {
	if ctx == nil {
		return language.English
	}
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return language.English
}
