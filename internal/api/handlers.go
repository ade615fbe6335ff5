package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/internal/catalog"
	"github.com/chazu/whitedwarf/pkg/export"
	"github.com/chazu/whitedwarf/pkg/pipeline"
)

// Version is reported by the root endpoint.
var Version = "1.0.0"

// Options configures the handlers.
type Options struct {
	// PublicURL prefixes shareable artifact links.
	PublicURL string

	// MaxUploadBytes caps multipart bodies.
	MaxUploadBytes int64
}

// Handlers serves the JSON API.
type Handlers struct {
	svc     *pipeline.Service
	catalog *catalog.Catalog
	opts    Options
	logger  *zap.Logger
}

// NewHandlers returns the handlers for svc and cat.
func NewHandlers(svc *pipeline.Service, cat *catalog.Catalog, opts Options, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Handlers{
		svc:     svc,
		catalog: cat,
		opts:    opts,
		logger:  logger.With(zap.String("component", "api")),
	}
}

type meshRequest struct {
	MeshURL string `json:"mesh_url"`
}

type textureRequest struct {
	MeshURL        string `json:"mesh_url"`
	MaterialPrompt string `json:"material_prompt"`
}

type exportRequest struct {
	MeshURL string   `json:"mesh_url"`
	Formats []string `json:"formats,omitempty"`
}

// decode reads a JSON body into v. Missing required fields are the
// caller's check.
func decode(r *http.Request, v any) *Error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &Error{Status: http.StatusUnprocessableEntity, Detail: "request body must be a JSON object", Cause: err}
	}
	return nil
}

func required(name, value string) *Error {
	if strings.TrimSpace(value) == "" {
		return &Error{Status: http.StatusUnprocessableEntity, Detail: fmt.Sprintf("%s is required", name)}
	}
	return nil
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	writeError(w, r, h.logger, classify(err, op))
}

// Physics handles POST /api/physics.
func (h *Handlers) Physics(w http.ResponseWriter, r *http.Request) {
	var req meshRequest
	if e := decode(r, &req); e != nil {
		writeError(w, r, h.logger, e)
		return
	}
	if e := required("mesh_url", req.MeshURL); e != nil {
		writeError(w, r, h.logger, e)
		return
	}
	report, err := h.svc.Physics(r.Context(), req.MeshURL)
	if err != nil {
		h.fail(w, r, err, "Physics analysis")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type textureResponse struct {
	TexturedModelURL string `json:"textured_model_url"`
	TextureImageURL  string `json:"texture_image_url,omitempty"`
	DepthImageURL    string `json:"depth_image_url,omitempty"`
	Message          string `json:"message"`
}

// Texture handles POST /api/texture.
func (h *Handlers) Texture(w http.ResponseWriter, r *http.Request) {
	var req textureRequest
	if e := decode(r, &req); e != nil {
		writeError(w, r, h.logger, e)
		return
	}
	for _, e := range []*Error{required("mesh_url", req.MeshURL), required("material_prompt", req.MaterialPrompt)} {
		if e != nil {
			writeError(w, r, h.logger, e)
			return
		}
	}
	res, err := h.svc.Texture(r.Context(), req.MeshURL, req.MaterialPrompt)
	if err != nil {
		h.fail(w, r, err, "Texture generation")
		return
	}
	writeJSON(w, http.StatusOK, textureResponse{
		TexturedModelURL: res.TexturedModelURL,
		TextureImageURL:  res.TextureImageURL,
		DepthImageURL:    res.DepthImageURL,
		Message:          "Texture generated and applied successfully",
	})
}

type exportResponse struct {
	GLBURL    *string       `json:"glb_url"`
	USDZURL   *string       `json:"usdz_url"`
	STLURL    *string       `json:"stl_url,omitempty"`
	PublicURL *string       `json:"public_url"`
	Artifacts export.Result `json:"artifacts"`
	Message   string        `json:"message"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Export handles POST /api/export.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if e := decode(r, &req); e != nil {
		writeError(w, r, h.logger, e)
		return
	}
	if e := required("mesh_url", req.MeshURL); e != nil {
		writeError(w, r, h.logger, e)
		return
	}
	var formats []export.Format
	if len(req.Formats) > 0 {
		var err error
		if formats, err = export.ParseFormats(req.Formats); err != nil {
			writeError(w, r, h.logger, &Error{Status: http.StatusBadRequest, Detail: err.Error(), Cause: err})
			return
		}
	}

	res, err := h.svc.Export(r.Context(), req.MeshURL, formats)
	if err != nil {
		h.fail(w, r, err, "Export")
		return
	}

	resp := exportResponse{
		GLBURL:    optional(res.URL(export.FormatGLB)),
		USDZURL:   optional(res.URL(export.FormatUSDZ)),
		STLURL:    optional(res.URL(export.FormatSTL)),
		Artifacts: h.publicArtifacts(res.Artifacts),
		Message:   "Export complete. Scan the QR code for AR preview.",
	}
	if resp.GLBURL != nil {
		resp.PublicURL = optional(strings.TrimRight(h.opts.PublicURL, "/") + *resp.GLBURL)
	}
	writeJSON(w, http.StatusOK, resp)
}

// publicArtifacts replaces filesystem paths with served URLs.
func (h *Handlers) publicArtifacts(in export.Result) export.Result {
	out := make(export.Result, len(in))
	for f, a := range in {
		if a.Path != "" {
			a.Path = pipeline.URLFor(a.Path)
		}
		out[f] = a
	}
	return out
}

type generateResponse struct {
	MeshURL string `json:"mesh_url"`
	Message string `json:"message"`
}

// Generate handles POST /api/generate (multipart: prompt, optional image).
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, h.logger, &Error{Status: http.StatusRequestEntityTooLarge, Detail: "upload too large", Cause: err})
			return
		}
		writeError(w, r, h.logger, &Error{Status: http.StatusUnprocessableEntity, Detail: "expected multipart form data", Cause: err})
		return
	}
	prompt := r.FormValue("prompt")
	if e := required("prompt", prompt); e != nil {
		writeError(w, r, h.logger, e)
		return
	}

	var ref *pipeline.Reference
	if file, header, err := r.FormFile("image"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, r, h.logger, &Error{Status: http.StatusBadRequest, Detail: "could not read image", Cause: err})
			return
		}
		if header.Filename != "" && len(data) > 0 {
			ref = &pipeline.Reference{Ext: filepath.Ext(header.Filename), Data: data}
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, r, h.logger, &Error{Status: http.StatusBadRequest, Detail: "invalid image field", Cause: err})
		return
	}

	res, err := h.svc.Generate(r.Context(), prompt, ref)
	if err != nil {
		h.fail(w, r, err, "Generation")
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		MeshURL: res.MeshURL,
		Message: fmt.Sprintf("Mesh generated successfully (%d bytes)", res.Size),
	})
}

type catalogList struct {
	Items []catalog.Item `json:"items"`
	Total int            `json:"total"`
}

// ListCatalog handles GET /api/catalog.
func (h *Handlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.List(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, catalogList{Items: items, Total: len(items)})
}

// GetCatalogItem handles GET /api/catalog/{id}.
func (h *Handlers) GetCatalogItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := h.catalog.Get(id)
	if err != nil {
		writeError(w, r, h.logger, &Error{Status: http.StatusNotFound, Detail: fmt.Sprintf("Item '%s' not found", id), Cause: err})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Root handles GET /.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "White Dwarf",
		"version": Version,
		"status":  "running",
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
