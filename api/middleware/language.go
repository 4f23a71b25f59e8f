package middleware

import (
	"net/http"

	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
)

// Language negotiates the response language from Accept-Language.
func Language(tr *i18n.Translator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := tr.Match(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			ctx := i18n.WithLanguage(r.Context(), tag)
			if logg != nil {
				ctx = logg.WithField(ctx, "lang", tag.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
