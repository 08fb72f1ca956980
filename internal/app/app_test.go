package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"jobalert/internal/config"
	"jobalert/internal/testutil"
	"jobalert/internal/transport"
)

func init() { gin.SetMode(gin.TestMode) }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

const testConfig = `{
  "telegram": {"token": "123:abc"},
  "admin": {"id": 1000},
  "http": {"addr": "127.0.0.1:0"},
  "storage": {"driver": "memory"},
  "metrics": {"enabled": true},
  "logging": {"level": "error", "console": false}
}`

func newTestApp(t *testing.T, body string) (*App, *testutil.RecordingNotifier) {
	t.Helper()
	rec := testutil.NewRecordingNotifier()
	a, err := NewApp(writeConfig(t, body), WithNotifier(rec), WithGetenv(func(string) string { return "" }))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a, rec
}

func post(t *testing.T, a *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bot", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Webhook().Handler().ServeHTTP(w, req)
	return w
}

func TestWebhookEndToEnd(t *testing.T) {
	a, rec := newTestApp(t, testConfig)

	sub := `{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":555,"type":"private"},"from":{"id":555,"first_name":"Ana"},"text":"/subscribe"}}`
	if w := post(t, a, sub); w.Code != http.StatusOK {
		t.Fatalf("subscribe status=%d body=%s", w.Code, w.Body.String())
	}

	add := `{"update_id":2,"message":{"message_id":2,"date":0,"chat":{"id":1000,"type":"private"},"from":{"id":1000,"first_name":"Admin"},"text":"/addjob|Assistant Teacher|Dhaka|30-10-2025|https://example.com/job|NGO"}}`
	if w := post(t, a, add); w.Code != http.StatusOK {
		t.Fatalf("addjob status=%d body=%s", w.Code, w.Body.String())
	}

	got := rec.SentTo(555)
	if len(got) != 2 {
		t.Fatalf("sends to subscriber = %d, want confirmation + broadcast", len(got))
	}
	if !got[1].Formatted || !strings.Contains(got[1].Text, "Assistant Teacher") {
		t.Fatalf("broadcast = %+v", got[1])
	}
	list, err := a.store.LoadJobs(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("jobs = %v err = %v", list, err)
	}
}

func TestMetricsAndHealthRoutes(t *testing.T) {
	a, _ := newTestApp(t, testConfig)
	post(t, a, `{"update_id":3,"message":{"message_id":3,"date":0,"chat":{"id":9,"type":"private"},"text":"/help"}}`)

	for _, path := range []string{"/api/health", "/metrics", "/"} {
		w := httptest.NewRecorder()
		a.Webhook().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status=%d", path, w.Code)
		}
		if path == "/metrics" && !strings.Contains(w.Body.String(), `jobalert_commands_total{command="help"} 1`) {
			t.Fatalf("metrics missing command counter:\n%s", w.Body.String())
		}
	}
}

func TestApplyConfigSwapsAuthorizer(t *testing.T) {
	a, rec := newTestApp(t, testConfig)
	ctx := testutil.TestContext(t)

	add := transport.Update{ID: 4, Message: &transport.Message{ChatID: 2000, FromID: 2000, Text: "/addjob|T|L|D|K|Y"}}
	if err := a.Dispatcher().Handle(ctx, add); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if list, _ := a.store.LoadJobs(ctx); len(list) != 0 {
		t.Fatal("non-admin added a job")
	}

	oldCfg := a.cfgm.Get()
	newCfg := *oldCfg
	newCfg.Admin.ID = 2000
	a.applyConfig(oldCfg, &newCfg)

	rec.Reset()
	if err := a.Dispatcher().Handle(ctx, add); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if list, _ := a.store.LoadJobs(ctx); len(list) != 1 {
		t.Fatal("job not added after admin change")
	}
}

func TestStartStop(t *testing.T) {
	a, _ := newTestApp(t, testConfig)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestNewAppRequiresToken(t *testing.T) {
	p := writeConfig(t, `{"storage": {"driver": "memory"}}`)
	_, err := NewApp(p, WithGetenv(func(string) string { return "" }))
	if err != config.ErrNoToken {
		t.Fatalf("NewApp() = %v, want ErrNoToken", err)
	}
}
