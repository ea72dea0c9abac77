// Package httpapi is the HTTP front-end for stabping (spec §6.2): it
// exposes the current Options document and historical range queries over
// each probe kind's Manager. Routing follows the teacher's manual
// switch-on-path style rather than a router dependency (see
// pkg/api/api0/api.go in the retrieved pack).
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jordanbertasso/stabping-go/internal/probe"
)

// Handler serves the stabping HTTP API. WSPort is reported verbatim by
// GET /api/config/ws_port; zero means live broadcast is disabled.
type Handler struct {
	Managers map[string]*probe.Manager // keyed by Kind.Name()
	WSPort   uint16
	Logger   zerolog.Logger
}

// NewHandler builds a Handler over managers, one per configured probe kind.
func NewHandler(managers []*probe.Manager, wsPort uint16, logger zerolog.Logger) *Handler {
	m := make(map[string]*probe.Manager, len(managers))
	for _, mgr := range managers {
		m[mgr.Kind.Name()] = mgr
	}
	return &Handler{Managers: m, WSPort: wsPort, Logger: logger}
}

// Middleware wraps h with the teacher's access-log/request-id chain.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	chain := next
	chain = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		e := h.Logger.Info()
		if rid, ok := hlog.IDFromRequest(r); ok {
			e = e.Stringer("rid", rid)
		}
		e.Str("method", r.Method).
			Stringer("uri", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("handle request")
	})(chain)
	chain = hlog.RequestIDHandler("rid", "")(chain)
	chain = hlog.NewHandler(h.Logger)(chain)
	return chain
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/config/ws_port":
		h.serveWSPort(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/target/"):
		h.serveTarget(w, r, strings.TrimPrefix(r.URL.Path, "/api/target/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveWSPort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, strconv.FormatUint(uint64(h.WSPort), 10))
}

func (h *Handler) serveTarget(w http.ResponseWriter, r *http.Request, kindName string) {
	mgr, ok := h.Managers[kindName]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getOptions(w, mgr)
	case http.MethodPut:
		h.putOptions(w, r, mgr)
	case http.MethodPost:
		h.postRangeQuery(w, r, mgr)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getOptions(w http.ResponseWriter, mgr *probe.Manager) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mgr.Options()); err != nil {
		h.Logger.Error().Err(err).Msg("httpapi: encode options failed")
	}
}

func (h *Handler) putOptions(w http.ResponseWriter, r *http.Request, mgr *probe.Manager) {
	var next probe.Options
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	newNonce, err := mgr.UpdateOptions(next)
	switch err {
	case nil:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, strconv.FormatInt(int64(newNonce), 10))
	case probe.ErrNonceConflict:
		http.Error(w, "nonce conflict", http.StatusConflict)
	case probe.ErrInvalidAddrArgument:
		http.Error(w, "invalid addr argument", http.StatusBadRequest)
	default:
		h.Logger.Error().Err(err).Str("kind", mgr.Kind.Name()).Msg("httpapi: persist options failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type rangeQueryRequest struct {
	Nonce int32  `json:"nonce"`
	Lower uint32 `json:"lower"`
	Upper uint32 `json:"upper"`
}

func (h *Handler) postRangeQuery(w http.ResponseWriter, r *http.Request, mgr *probe.Manager) {
	var req rangeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")

	var out io.Writer = w
	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		out = gz
	}

	if err := probe.RangeQuery(mgr, req.Nonce, req.Lower, req.Upper, out); err != nil {
		if err == probe.ErrNonceConflict {
			http.Error(w, "nonce conflict", http.StatusConflict)
			return
		}
		h.Logger.Error().Err(err).Str("kind", mgr.Kind.Name()).Msg("httpapi: range query failed")
		http.Error(w, "bad request", http.StatusBadRequest)
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(enc) == "gzip" {
			return true
		}
	}
	return false
}
