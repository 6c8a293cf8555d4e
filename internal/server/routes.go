package server

import (
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/AbhinayAmbati/kanbana/internal/api/v1"
)

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterBoardRoutes(api, deps.Pipeline, deps.Hub, deps.Registry)
	v1.RegisterColumnRoutes(api, deps.Pipeline, deps.Registry)
	v1.RegisterCardRoutes(api, deps.Pipeline, deps.Registry)
	v1.RegisterCommentRoutes(api, deps.Pipeline, deps.Registry)
}

func registerWSRoutes(r chi.Router, handler http.Handler) {
	r.Get("/", handler.ServeHTTP)
}

// originPatterns turns CORS origins into the host patterns the WebSocket
// handshake checks. "*" allows any origin.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
