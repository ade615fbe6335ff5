package api

import (
	"net/http"

	"go.uber.org/zap"
)

// RouterConfig collects what the router mounts.
type RouterConfig struct {
	Handlers    *Handlers
	OutputsDir  string
	Metrics     http.Handler
	Recorder    HTTPRecorder
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the full handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := cfg.Handlers
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/physics", h.Physics)
	mux.HandleFunc("POST /api/texture", h.Texture)
	mux.HandleFunc("POST /api/export", h.Export)
	mux.HandleFunc("POST /api/generate", h.Generate)
	mux.HandleFunc("GET /api/catalog", h.ListCatalog)
	mux.HandleFunc("GET /api/catalog/{id}", h.GetCatalogItem)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /{$}", h.Root)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.OutputsDir != "" {
		mux.Handle("GET /outputs/", http.StripPrefix("/outputs/", noListing(http.FileServer(http.Dir(cfg.OutputsDir)))))
	}

	return Chain(mux,
		Recovery(logger),
		Observe(logger, cfg.Recorder),
		CORS(cfg.CORSOrigins),
	)
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
