package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestMatchNegotiatesSupportedLanguages(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	assert.Equal(t, language.Spanish, tr.Match("es-ES,es;q=0.9,en;q=0.5"))
	assert.Equal(t, language.Catalan, tr.Match("ca"))
	assert.Equal(t, language.English, tr.Match(""))
	assert.Equal(t, language.English, tr.Match("not a header;;"))
}

func TestSprintfRendersCatalogMessages(t *testing.T) {
	tr := Default()

	assert.Equal(t,
		`Quantity 3 of line "Bolts" is lower than the minimum quantity 5.`,
		tr.Sprintf(language.English, KeyMinimumQuantity, "Bolts", "3", "5"))
	assert.Equal(t,
		`El importe total 80 de la venta "S001" es inferior al importe mínimo 100.`,
		tr.Sprintf(language.Spanish, KeyMinimumAmount, "80", "S001", "100"))
}

func TestTranslateUsesContextLanguage(t *testing.T) {
	tr := Default()
	ctx := WithLanguage(context.Background(), language.Catalan)

	assert.Equal(t, language.Catalan, LanguageFromContext(ctx))
	assert.Contains(t, tr.Translate(ctx, KeyMinimumQuantityWarning, "Cargol", "2", "4"), "quantitat mínima 4")
	assert.Equal(t, language.English, LanguageFromContext(context.Background()))
}
