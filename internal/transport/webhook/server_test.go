package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
)

func init() { gin.SetMode(gin.TestMode) }

type captureHandler struct {
	mu  sync.Mutex
	ups []transport.Update
	err error
}

func (h *captureHandler) Handle(ctx context.Context, up transport.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ups = append(h.ups, up)
	return h.err
}

func do(t *testing.T, s *Server, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeOK(t *testing.T, w *httptest.ResponseRecorder) bool {
	t.Helper()
	var out struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out.OK
}

const updateJSON = `{"update_id":10,"message":{"message_id":1,"date":0,"chat":{"id":555,"type":"private"},"from":{"id":777,"is_bot":false,"first_name":"Ana"},"text":"/subscribe"}}`

func TestWebhookDeliversUpdate(t *testing.T) {
	h := &captureHandler{}
	s := New(Config{}, h, Options{Log: logx.Nop()})

	w := do(t, s, http.MethodPost, DefaultPath, updateJSON, nil)

	if w.Code != http.StatusOK || !decodeOK(t, w) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(h.ups) != 1 {
		t.Fatalf("handled %d updates, want 1", len(h.ups))
	}
	m := h.ups[0].Message
	if h.ups[0].ID != 10 || m == nil || m.ChatID != 555 || m.FromID != 777 || m.FromFirstName != "Ana" || m.Text != "/subscribe" {
		t.Fatalf("update = %+v msg = %+v", h.ups[0], m)
	}
}

func TestWebhookEditedMessage(t *testing.T) {
	h := &captureHandler{}
	s := New(Config{}, h, Options{})
	body := `{"update_id":11,"edited_message":{"message_id":2,"date":0,"chat":{"id":9,"type":"private"},"text":"/jobs"}}`

	w := do(t, s, http.MethodPost, DefaultPath, body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if m := h.ups[0].Message; m == nil || !m.Edited || m.Text != "/jobs" {
		t.Fatalf("message = %+v", m)
	}
}

func TestWebhookNoMessageAcknowledged(t *testing.T) {
	h := &captureHandler{}
	s := New(Config{}, h, Options{})

	w := do(t, s, http.MethodPost, DefaultPath, `{"update_id":12}`, nil)

	if w.Code != http.StatusOK || !decodeOK(t, w) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if h.ups[0].Message != nil {
		t.Fatal("expected nil message")
	}
}

func TestWebhookBadJSON(t *testing.T) {
	h := &captureHandler{}
	s := New(Config{}, h, Options{})

	w := do(t, s, http.MethodPost, DefaultPath, `{not json`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	if len(h.ups) != 0 {
		t.Fatal("handler called for bad body")
	}
}

func TestWebhookHandlerError(t *testing.T) {
	h := &captureHandler{err: errors.New("store down")}
	s := New(Config{}, h, Options{})

	w := do(t, s, http.MethodPost, DefaultPath, updateJSON, nil)

	if w.Code != http.StatusInternalServerError || decodeOK(t, w) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestWebhookSecret(t *testing.T) {
	h := &captureHandler{}
	s := New(Config{Path: "/hook", Secret: "tok"}, h, Options{})

	if w := do(t, s, http.MethodPost, "/hook", updateJSON, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret status=%d, want 401", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/hook", updateJSON, map[string]string{SecretHeader: "bad"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret status=%d, want 401", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/hook", updateJSON, map[string]string{SecretHeader: "tok"}); w.Code != http.StatusOK {
		t.Fatalf("good secret status=%d, want 200", w.Code)
	}
	if len(h.ups) != 1 {
		t.Fatalf("handled %d updates, want 1", len(h.ups))
	}
}

func TestIndexAndHealth(t *testing.T) {
	s := New(Config{}, &captureHandler{}, Options{})

	w := do(t, s, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != banner {
		t.Fatalf("index status=%d body=%q", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK || !decodeOK(t, w) {
		t.Fatalf("health status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHealthReportsBackendFailure(t *testing.T) {
	s := New(Config{}, &captureHandler{}, Options{
		Health: func(ctx context.Context) error { return errors.New("redis unreachable") },
	})

	w := do(t, s, http.MethodGet, "/api/health", "", nil)

	if w.Code != http.StatusServiceUnavailable || decodeOK(t, w) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	mh := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jobalert_up 1\n"))
	})
	s := New(Config{}, &captureHandler{}, Options{MetricsHandler: mh})

	w := do(t, s, http.MethodGet, DefaultMetricsPath, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "jobalert_up") {
		t.Fatalf("metrics status=%d body=%q", w.Code, w.Body.String())
	}

	s = New(Config{}, &captureHandler{}, Options{})
	if w := do(t, s, http.MethodGet, DefaultMetricsPath, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler status=%d, want 404", w.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"}, &captureHandler{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}
}
