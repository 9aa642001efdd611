package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"planner/internal/notifier"
	"planner/internal/reminder"
	"planner/internal/storage"
	"planner/internal/task"
	logx "planner/pkg/logx"
)

type staticTasks []task.Task

func (s staticTasks) ListAll() []task.Task { return s }

type staticPending []reminder.Reminder

func (s staticPending) Pending() []reminder.Reminder { return s }

type memStore struct{ entries []storage.AuditEntry }

func (m *memStore) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) RecentAudit(_ context.Context, limit int) ([]storage.AuditEntry, error) {
	if limit > 0 && len(m.entries) > limit {
		return m.entries[len(m.entries)-limit:], nil
	}
	return m.entries, nil
}

func (m *memStore) Close() error { return nil }

func newTestServer(store storage.Store) *Server {
	at := time.Date(2026, 8, 9, 7, 15, 0, 0, time.UTC)
	return New(Deps{
		Tasks:     staticTasks{{ID: "t1", Name: "Run", Description: "5k", Time: at}},
		Reminders: staticPending{{Handle: reminder.Handle{ID: 1, At: at}, Notification: reminder.Notification{TaskID: "t1", TaskName: "Run", Title: "Task Reminder"}}},
		History:   notifier.New(notifier.Config{}, nil, logx.Nop(), nil),
		Store:     store,
		Location:  time.UTC,
	}, logx.Nop())
}

func do(t *testing.T, h http.Handler, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	t.Parallel()
	h := newTestServer(&memStore{entries: []storage.AuditEntry{{Action: "a"}, {Action: "b"}, {Action: "c"}}}).Handler("")

	if rec := do(t, h, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec := do(t, h, "/tasks", "")
	var tasks []taskView
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil || len(tasks) != 1 {
		t.Fatalf("tasks = %s (%v)", rec.Body.String(), err)
	}
	if tasks[0].Local != "2026-08-09 07:15" || tasks[0].Name != "Run" {
		t.Fatalf("task view = %+v", tasks[0])
	}

	rec = do(t, h, "/reminders", "")
	var rems []reminderView
	if err := json.Unmarshal(rec.Body.Bytes(), &rems); err != nil || len(rems) != 1 || rems[0].Task != "Run" {
		t.Fatalf("reminders = %s (%v)", rec.Body.String(), err)
	}

	if rec := do(t, h, "/deliveries", ""); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("deliveries = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, "/audit?limit=2", "")
	var audit []storage.AuditEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &audit); err != nil || len(audit) != 2 || audit[0].Action != "b" {
		t.Fatalf("audit = %s (%v)", rec.Body.String(), err)
	}
	if rec := do(t, h, "/audit?limit=zero", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", rec.Code)
	}

	if rec := do(t, h, "/debug/pprof/", ""); rec.Code != http.StatusOK {
		t.Fatalf("pprof index = %d", rec.Code)
	}
}

func TestAuditWithoutStorage(t *testing.T) {
	t.Parallel()
	h := newTestServer(nil).Handler("")
	if rec := do(t, h, "/audit", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("audit without storage = %d", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()
	h := newTestServer(nil).Handler("s3cret")

	if rec := do(t, h, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz should stay open, got %d", rec.Code)
	}
	if rec := do(t, h, "/tasks", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", rec.Code)
	}
	if rec := do(t, h, "/tasks", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token = %d", rec.Code)
	}
	if rec := do(t, h, "/tasks", "s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("bearer token = %d", rec.Code)
	}
	if rec := do(t, h, "/tasks?token=s3cret", ""); rec.Code != http.StatusOK {
		t.Fatalf("query token = %d", rec.Code)
	}
}

func TestApplyLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestServer(nil)
	ctx := context.Background()

	if err := s.Apply(ctx, Config{Enabled: true, Addr: "0.0.0.0:0"}); err == nil {
		t.Fatal("public bind without token should be refused")
	}

	if err := s.Apply(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	addr := s.Addr()
	if addr == "" {
		t.Fatal("no listen address")
	}
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz over tcp = %d", resp.StatusCode)
	}

	if err := s.Apply(ctx, Config{Enabled: false}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if s.Addr() != "" {
		t.Fatal("server still running after disable")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"localhost:80": true,
		":80":          false,
		"0.0.0.0:80":   false,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for addr, want := range cases {
		if got := isLoopbackAddr(addr); got != want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}
