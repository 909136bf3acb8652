package i18n

import (
	"net/http"

	"github.com/pavelanni/reportcard/internal/model"
)

// Middleware injects a localizer into every request context. A "lang" query
// parameter wins over the Accept-Language header; lang is the fallback.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := r.URL.Query().Get("lang")
			loc := NewLocalizer(want, r.Header.Get("Accept-Language"), lang)
			ctx := WithLocalizer(r.Context(), loc)
			if want == "" {
				want = lang
			}
			ctx = model.ContextWithLang(ctx, want)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
