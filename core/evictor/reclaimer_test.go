package evictor

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

// flakyRemover fails the first n calls per path.
type flakyRemover struct {
	mu    sync.Mutex
	fails int
	calls map[string]int
}

func (f *flakyRemover) remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if f.calls[path] <= f.fails {
		return errors.New("file is busy")
	}
	return nil
}

func (f *flakyRemover) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestReclaimImmediate(t *testing.T) {
	f := &flakyRemover{calls: map[string]int{}}
	r := NewReclaimer(f.remove, []time.Duration{time.Millisecond})
	if !r.Reclaim("a") {
		t.Error("immediate delete should report done")
	}
	if r.Pending() != 0 {
		t.Error("nothing should be pending")
	}
}

func TestReclaimRetriesUntilSuccess(t *testing.T) {
	f := &flakyRemover{fails: 2, calls: map[string]int{}}
	r := NewReclaimer(f.remove, []time.Duration{25 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond})
	r.Start()
	defer r.Stop()

	if r.Reclaim("busy.webm") {
		t.Fatal("first attempt should fail")
	}
	if r.Reclaim("busy.webm") {
		t.Fatal("still busy")
	}
	waitFor(t, func() bool { return r.Pending() == 0 })
	// the duplicate Reclaim tried once more immediately but did not schedule twice
	if got := f.count("busy.webm"); got != 3 {
		t.Errorf("remove called %d times, want 3", got)
	}
}

func TestReclaimGivesUp(t *testing.T) {
	f := &flakyRemover{fails: 100, calls: map[string]int{}}
	r := NewReclaimer(f.remove, []time.Duration{time.Millisecond, 2 * time.Millisecond})
	r.Start()
	defer r.Stop()

	r.Reclaim("stuck.webm")
	waitFor(t, func() bool { return r.Pending() == 0 })
	// one immediate try plus one per backoff step
	if got := f.count("stuck.webm"); got != 3 {
		t.Errorf("remove called %d times, want 3", got)
	}
}

func TestReclaimMissingFileIsSuccess(t *testing.T) {
	r := NewReclaimer(func(path string) error { return os.Remove(path) }, nil)
	if !r.Reclaim("/definitely/not/here.webm") {
		t.Error("a missing file counts as reclaimed")
	}
}

func TestInsertByDue(t *testing.T) {
	base := time.Now()
	var q []reclaimTask
	for _, off := range []int{3, 1, 2, 0} {
		q = insertByDue(q, reclaimTask{path: string(rune('a' + off)), due: base.Add(time.Duration(off) * time.Second)})
	}
	for i := 1; i < len(q); i++ {
		if q[i].due.Before(q[i-1].due) {
			t.Fatalf("queue out of order at %d", i)
		}
	}
}
