package middleware

import (
	"context"
	"net/http"

	"studioops/internal/domain"
)

const viewerKey contextKey = "viewer"

// Viewer lifts the caller identity resolved by the upstream auth layer out of
// trusted headers and into the request context. Tenant/session resolution
// itself is not this service's concern.
func Viewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := domain.Viewer{
			TenantID: r.Header.Get("X-Tenant-ID"),
		}
		switch r.Header.Get("X-Viewer-Role") {
		case "staff":
			v.Staff = true
		case "owner":
			v.Owner = true
		}
		ctx := context.WithValue(r.Context(), viewerKey, v)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ViewerFromContext(ctx context.Context) domain.Viewer {
	if v, ok := ctx.Value(viewerKey).(domain.Viewer); ok {
		return v
	}
	return domain.Viewer{}
}
