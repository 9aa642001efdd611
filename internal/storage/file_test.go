package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "planner/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("driver %q: got (%v, %v), want (nil, nil)", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should fail")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("file driver without path should fail")
	}
}

func TestFileJournalKeepsOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		e := AuditEntry{At: base.Add(time.Duration(i) * time.Second), Action: ActionTaskAdded, TaskID: id, TaskName: "task " + id, TaskTime: base}
		if err := st.AppendAudit(ctx, e); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	all, err := st.RecentAudit(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != len(ids) {
		t.Fatalf("len = %d, want %d", len(all), len(ids))
	}
	for i, e := range all {
		if e.TaskID != ids[i] {
			t.Fatalf("entry %d = %s, want %s", i, e.TaskID, ids[i])
		}
		if !e.TaskTime.Equal(base) {
			t.Fatalf("entry %d task time = %v", i, e.TaskTime)
		}
	}

	tail, err := st.RecentAudit(ctx, 2)
	if err != nil {
		t.Fatalf("recent(2): %v", err)
	}
	if len(tail) != 2 || tail[0].TaskID != "c" || tail[1].TaskID != "d" {
		t.Fatalf("tail = %+v", tail)
	}
}

func TestFileJournalSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.AppendAudit(ctx, AuditEntry{Action: ActionReminderFired, TaskID: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := st.AppendAudit(ctx, AuditEntry{}); err == nil {
		t.Fatal("append after close should fail")
	}

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	got, err := st2.RecentAudit(ctx, 10)
	if err != nil || len(got) != 1 || got[0].Action != ActionReminderFired {
		t.Fatalf("after reopen: %+v, %v", got, err)
	}
}
