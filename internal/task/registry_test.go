package task

import (
	"testing"
	"time"
)

func TestRegistryListAllEmpty(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if got := r.ListAll(); len(got) != 0 {
		t.Fatalf("ListAll on empty registry = %v", got)
	}
}

func TestRegistryKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	names := []string{"c", "a", "b"}
	for i, n := range names {
		r.Add(Task{Name: n, Time: time.Unix(int64(100-i), 0)})
	}
	got := r.ListAll()
	if len(got) != len(names) || r.Len() != len(names) {
		t.Fatalf("len = %d, want %d", len(got), len(names))
	}
	for i, n := range names {
		if got[i].Name != n {
			t.Fatalf("ListAll()[%d] = %q, want %q", i, got[i].Name, n)
		}
	}
}

func TestRegistryListAllReturnsCopy(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Add(Task{Name: "orig"})
	got := r.ListAll()
	got[0].Name = "mutated"
	if r.ListAll()[0].Name != "orig" {
		t.Fatal("ListAll exposed internal storage")
	}
}
