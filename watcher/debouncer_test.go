package watcher

import (
	"testing"
	"time"
)

const testInterval = 50 * time.Millisecond

func receiveBatch(t *testing.T, d *Debouncer, timeout time.Duration) []ChangeEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debouncer batch")
		return nil
	}
}

func Test_Debouncer_SingleEvent(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("server.py", OpWrite)

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 1 {
		t.Fatalf("expected 1 event, got %d", len(batch))
	}
	if batch[0].Path != "server.py" {
		t.Errorf("expected path 'server.py', got '%s'", batch[0].Path)
	}
	if batch[0].Op != OpWrite {
		t.Errorf("expected OpWrite, got %s", batch[0].Op)
	}
}

func Test_Debouncer_EventCollapsing(t *testing.T) {
	d := NewDebouncer(testInterval)

	// The same path twice collapses to one event with the latest op
	d.Add("server.py", OpCreate)
	d.Add("server.py", OpWrite)

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 1 {
		t.Fatalf("expected 1 event (collapsed), got %d", len(batch))
	}
	if batch[0].Op != OpWrite {
		t.Errorf("expected latest op OpWrite, got %s", batch[0].Op)
	}
}

func Test_Debouncer_ArrivalOrder(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("zeta.py", OpWrite)
	d.Add("alpha.py", OpCreate)
	d.Add("mid.py", OpWrite)
	d.Add("zeta.py", OpWrite)

	batch := receiveBatch(t, d, 500*time.Millisecond)

	expected := []string{"zeta.py", "alpha.py", "mid.py"}
	if len(batch) != len(expected) {
		t.Fatalf("expected %d events, got %d", len(expected), len(batch))
	}
	for i, path := range expected {
		if batch[i].Path != path {
			t.Errorf("event[%d]: expected path '%s', got '%s'", i, path, batch[i].Path)
		}
	}
}

func Test_Debouncer_TimerReset(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("server.py", OpWrite)

	// Wait less than the interval, then add another event; the timer restarts
	time.Sleep(testInterval / 2)
	d.Add("utils.py", OpWrite)

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 2 {
		t.Fatalf("expected 2 events in single batch, got %d", len(batch))
	}
	if batch[0].Path != "server.py" || batch[1].Path != "utils.py" {
		t.Errorf("expected server.py then utils.py, got: %v", batch)
	}
}

func Test_Debouncer_SeparateBatches(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("server.py", OpWrite)
	first := receiveBatch(t, d, 500*time.Millisecond)
	d.Add("server.py", OpWrite)
	second := receiveBatch(t, d, 500*time.Millisecond)

	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected one event per batch, got %v and %v", first, second)
	}
}

func Test_EventOp_String(t *testing.T) {
	if OpCreate.String() != "create" || OpRename.String() != "rename" || EventOp(42).String() != "unknown" {
		t.Error("unexpected EventOp names")
	}
}
