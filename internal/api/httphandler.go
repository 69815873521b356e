package api

import (
	"context"
	"errors"
	"folio/internal/expr"
	"folio/internal/ports"
	"folio/internal/pub"
	"folio/internal/session"
	"folio/internal/types"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20

	profileID = "profile"

	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeInvalidOrder    = "invalid_order"
	CodeInvalidDocument = "invalid_document"
	CodeLastVisible     = "last_visible"
	CodeTooLarge        = "too_large"
	CodeInternal        = "internal"
)

// Handler serves the reference admin API over a ResourceStore.
type Handler struct {
	Store ports.ResourceStore
	Pub   ports.Publisher
	Auth  *Authenticator

	topic     string
	publicURL string

	// mutations of one resource are serialized so that the visibility and
	// density checks see a consistent collection
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewHandler(store ports.ResourceStore, p ports.Publisher, cfg types.ServerConfig) *Handler {
	return &Handler{
		Store:     store,
		Pub:       p,
		Auth:      NewAuthenticator(cfg.JWTSecret),
		topic:     cfg.TopicArn,
		publicURL: strings.TrimRight(cfg.UploadPublicURL, "/"),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)

	mux.Handle("GET /profile", h.requireAuth(h.handleGetProfile))
	mux.Handle("PUT /profile", h.requireAuth(h.handlePutProfile))
	mux.Handle("POST /upload", h.requireAuth(h.handleUpload))

	mux.Handle("GET /{resource}", h.requireAuth(h.handleList))
	mux.Handle("POST /{resource}", h.requireAuth(h.handleCreate))
	mux.Handle("PATCH /{resource}/reorder", h.requireAuth(h.handleReorder))
	mux.Handle("GET /{resource}/{id}", h.requireAuth(h.handleGet))
	mux.Handle("PUT /{resource}/{id}", h.requireAuth(h.handleUpdate))
	mux.Handle("DELETE /{resource}/{id}", h.requireAuth(h.handleDelete))
	mux.Handle("PATCH /{resource}/{id}/visibility", h.requireAuth(h.handleVisibility))
	return logRequests(mux)
}

func (h *Handler) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
			return
		}
		if _, err := h.Auth.Verify(token, TokenUseAccess); err != nil {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
			return
		}
		next(w, r)
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req session.RefreshRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, TokenUseRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
		return
	}
	access, refresh, err := h.Auth.Issue(claims.Subject)
	if err != nil {
		writeFailure(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, session.RefreshResponse{AccessToken: access, RefreshToken: refresh})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	docs, err := h.Store.List(r.Context(), resource)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if where := r.URL.Query().Get("where"); where != "" {
		if err := expr.Compile(where); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid where expression: "+err.Error())
			return
		}
		kept := docs[:0]
		for _, d := range docs {
			if expr.Match(where, plain(d)) {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	_ = writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	doc, err := h.Store.Get(r.Context(), resource, r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	var doc types.Document
	if err := readJSON(r, &doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "body must be a JSON object")
		return
	}
	if err := validateDocument(resource, doc); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidDocument, err.Error())
		return
	}

	ctx := r.Context()
	unlock := h.lock(resource)
	defer unlock()
	docs, err := h.Store.List(ctx, resource)
	if err != nil {
		writeFailure(w, err)
		return
	}
	now := timeNow().UTC().Format(time.RFC3339)
	doc["id"] = ulid.Make().String()
	doc["order"] = len(docs)
	if _, ok := doc["visible"].(bool); !ok {
		doc["visible"] = true
	}
	doc["created_at"] = now
	doc["updated_at"] = now
	if err := h.Store.Put(ctx, resource, doc); err != nil {
		writeFailure(w, err)
		return
	}
	h.emit(ctx, resource, pub.ActionCreated, doc.ID())
	_ = writeJSON(w, http.StatusCreated, doc)
}

// handleUpdate replaces the content of a document. Identity, position and creation time
// are kept from the stored document.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	var doc types.Document
	if err := readJSON(r, &doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "body must be a JSON object")
		return
	}
	if err := validateDocument(resource, doc); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidDocument, err.Error())
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	unlock := h.lock(resource)
	defer unlock()
	current, err := h.Store.Get(ctx, resource, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if v, ok := doc["visible"].(bool); ok && !v && current.Visible() {
		if err := h.requireOtherVisible(ctx, resource, id); err != nil {
			writeFailure(w, err)
			return
		}
	}
	doc["id"] = id
	doc["order"] = current.Order()
	if _, ok := doc["visible"].(bool); !ok {
		doc["visible"] = current.Visible()
	}
	if c, ok := current["created_at"]; ok {
		doc["created_at"] = c
	}
	doc["updated_at"] = timeNow().UTC().Format(time.RFC3339)
	if err := h.Store.Put(ctx, resource, doc); err != nil {
		writeFailure(w, err)
		return
	}
	h.emit(ctx, resource, pub.ActionUpdated, id)
	_ = writeJSON(w, http.StatusOK, doc)
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// handleVisibility sets "visible" from the body, or flips it when the body is empty.
func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	unlock := h.lock(resource)
	defer unlock()
	doc, err := h.Store.Get(ctx, resource, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	next := !doc.Visible()
	if req.Visible != nil {
		next = *req.Visible
	}
	if !next && doc.Visible() {
		if err := h.requireOtherVisible(ctx, resource, id); err != nil {
			writeFailure(w, err)
			return
		}
	}
	doc["visible"] = next
	doc["updated_at"] = timeNow().UTC().Format(time.RFC3339)
	if err := h.Store.Put(ctx, resource, doc); err != nil {
		writeFailure(w, err)
		return
	}
	h.emit(ctx, resource, pub.ActionVisibility, id)
	_ = writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	var req types.ReorderRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	unlock := h.lock(resource)
	defer unlock()
	if err := h.Store.Reorder(ctx, resource, req.IDs()); err != nil {
		writeFailure(w, err)
		return
	}
	h.emit(ctx, resource, pub.ActionReordered, "")
	_ = writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// handleDelete removes a document and closes the gap it leaves in the order.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	resource, ok := h.resource(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")
	unlock := h.lock(resource)
	defer unlock()
	doc, err := h.Store.Get(ctx, resource, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if doc.Visible() {
		if err := h.requireOtherVisible(ctx, resource, id); err != nil {
			writeFailure(w, err)
			return
		}
	}
	if err := h.Store.Delete(ctx, resource, id); err != nil {
		writeFailure(w, err)
		return
	}
	rest, err := h.Store.List(ctx, resource)
	if err == nil {
		ids := make([]string, 0, len(rest))
		for _, d := range rest {
			ids = append(ids, d.ID())
		}
		err = h.Store.Reorder(ctx, resource, ids)
	}
	if err != nil {
		log.WithError(err).WithField("resource", resource).Warn("failed to compact order after delete")
	}
	h.emit(ctx, resource, pub.ActionDeleted, id)
	_ = writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Store.Get(r.Context(), types.ResourceProfile, profileID)
	if errors.Is(err, types.ErrNotFound) {
		doc, err = types.Document{}, nil
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	delete(doc, "id")
	_ = writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var doc types.Document
	if err := readJSON(r, &doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "body must be a JSON object")
		return
	}
	ctx := r.Context()
	doc["id"] = profileID
	doc["updated_at"] = timeNow().UTC().Format(time.RFC3339)
	if err := h.Store.Put(ctx, types.ResourceProfile, doc); err != nil {
		writeFailure(w, err)
		return
	}
	h.emit(ctx, types.ResourceProfile, pub.ActionUpdated, "")
	out := doc.Clone()
	delete(out, "id")
	_ = writeJSON(w, http.StatusOK, out)
}

// handleUpload accepts multipart field "file". Only metadata is kept; the public URL
// points at the CDN the files are synchronized to.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+maxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "file exceeds 10 MiB")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	size, err := io.Copy(io.Discard, io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if size > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "file exceeds 10 MiB")
		return
	}

	ctx := r.Context()
	name := path.Base(header.Filename)
	unlock := h.lock(types.ResourceUploads)
	defer unlock()
	docs, err := h.Store.List(ctx, types.ResourceUploads)
	if err != nil {
		writeFailure(w, err)
		return
	}
	id := ulid.Make().String()
	doc := types.Document{
		"id":           id,
		"order":        len(docs),
		"visible":      true,
		"filename":     name,
		"size":         size,
		"content_type": header.Header.Get("Content-Type"),
		"created_at":   timeNow().UTC().Format(time.RFC3339),
	}
	if err := h.Store.Put(ctx, types.ResourceUploads, doc); err != nil {
		writeFailure(w, err)
		return
	}
	h.emit(ctx, types.ResourceUploads, pub.ActionUploaded, id)
	_ = writeJSON(w, http.StatusCreated, types.UploadResult{
		URL: h.publicURL + "/" + id + "/" + url.PathEscape(name),
	})
}

// resource resolves the {resource} path segment, answering 404 for unknown names.
func (h *Handler) resource(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("resource")
	if name == types.ResourceUploads {
		return name, true
	}
	for _, known := range types.OrderedResources {
		if name == known {
			return name, true
		}
	}
	writeError(w, http.StatusNotFound, CodeNotFound, "unknown resource "+name)
	return "", false
}

func (h *Handler) requireOtherVisible(ctx context.Context, resource, id string) error {
	if !types.RequiresVisible(resource) {
		return nil
	}
	docs, err := h.Store.List(ctx, resource)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.ID() != id && d.Visible() {
			return nil
		}
	}
	return types.Err(types.ErrLastVisible, nil, "%s/%s", resource, id)
}

func (h *Handler) lock(resource string) (unlock func()) {
	h.mu.Lock()
	m, ok := h.locks[resource]
	if !ok {
		m = &sync.Mutex{}
		h.locks[resource] = m
	}
	h.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (h *Handler) emit(ctx context.Context, resource, action, id string) {
	pub.Emit(ctx, h.Pub, h.topic, pub.Event{Resource: resource, Action: action, ID: id})
}

// validateDocument applies the checks a typed resource needs beyond being a JSON object.
func validateDocument(resource string, doc types.Document) error {
	if resource != types.ResourceHeroSlides {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var slide types.HeroSlide
	if err := json.Unmarshal(b, &slide); err != nil {
		return err
	}
	return slide.Validate()
}

// plain turns a document into the generic JSON shape JMESPath evaluates against.
func plain(d types.Document) any {
	b, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func readJSON(r *http.Request, v any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return io.EOF
	}
	return json.Unmarshal(body, v)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	_ = writeJSON(w, status, types.ErrorBody{Code: code, Message: message})
}

// writeFailure maps store and domain errors onto statuses.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, types.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, CodeInvalidOrder, err.Error())
	case errors.Is(err, types.ErrLastVisible):
		writeError(w, http.StatusConflict, CodeLastVisible, "at least one item must stay visible")
	case errors.Is(err, types.ErrPrecondition):
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}
