package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jordanbertasso/stabping-go/internal/probe"
)

func newTestHandler(t *testing.T) (*Handler, *probe.Manager) {
	t.Helper()
	dir := t.TempDir()
	mgr, err := probe.NewManager(dir, probe.TCPPing)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return NewHandler([]*probe.Manager{mgr}, 9001, zerolog.Nop()), mgr
}

func TestGetWSPort(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/config/ws_port", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "9001" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "9001")
	}
}

func TestGetTargetReturnsOptions(t *testing.T) {
	h, mgr := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/target/tcpping", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got probe.Options
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Nonce != mgr.Nonce() {
		t.Errorf("nonce = %d, want %d", got.Nonce, mgr.Nonce())
	}
}

func TestGetTargetUnknownKind(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/target/nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestPutTargetSuccess(t *testing.T) {
	h, mgr := newTestHandler(t)
	o := mgr.Options()
	body, _ := json.Marshal(o)

	req := httptest.NewRequest(http.MethodPut, "/api/target/tcpping", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "1" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "1")
	}
}

func TestPutTargetStaleNonceConflict(t *testing.T) {
	h, mgr := newTestHandler(t)
	o := mgr.Options()
	o.Nonce = o.Nonce + 5
	body, _ := json.Marshal(o)

	req := httptest.NewRequest(http.MethodPut, "/api/target/tcpping", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestPutTargetMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/api/target/tcpping", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestPostRangeQuery(t *testing.T) {
	h, mgr := newTestHandler(t)
	addr := mgr.Options().Addrs[0]
	if err := mgr.RawLog().Append([]probe.Sample{
		{TimeS: 100, AddrID: uint32(addr), Value: 1.5},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	reqBody, _ := json.Marshal(map[string]any{"nonce": mgr.Nonce(), "lower": 0, "upper": 1000})
	req := httptest.NewRequest(http.MethodPost, "/api/target/tcpping", bytes.NewReader(reqBody))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	if rr.Body.Len() != 4+4 {
		t.Errorf("body length = %d, want 8 (one row, one addr)", rr.Body.Len())
	}
}

func TestPostRangeQueryNonceMismatch(t *testing.T) {
	h, mgr := newTestHandler(t)
	reqBody, _ := json.Marshal(map[string]any{"nonce": mgr.Nonce() + 1, "lower": 0, "upper": 1000})
	req := httptest.NewRequest(http.MethodPost, "/api/target/tcpping", bytes.NewReader(reqBody))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}
