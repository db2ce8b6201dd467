package reveal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	deltas    []string
	prefixes  []string
	completes int
	done      chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) onChunk(prefix, delta string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefix)
	r.deltas = append(r.deltas, delta)
}

func (r *recorder) onComplete() {
	r.mu.Lock()
	r.completes++
	n := r.completes
	r.mu.Unlock()
	if n == 1 {
		close(r.done)
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reveal did not complete in time")
	}
}

func TestRevealChunksAndCompletesOnce(t *testing.T) {
	e := NewEngine(5, time.Millisecond)
	rec := newRecorder()

	e.Start("hello world", rec.onChunk, rec.onComplete)
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, []string{"hello", " worl", "d"}, rec.deltas)
	assert.Equal(t, "hello world", rec.prefixes[len(rec.prefixes)-1])
	assert.Equal(t, 1, rec.completes)
}

func TestRevealShortContentSingleChunk(t *testing.T) {
	e := NewEngine(5, time.Millisecond)
	rec := newRecorder()

	e.Start("hi", rec.onChunk, rec.onComplete)
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"hi"}, rec.deltas)
	assert.Equal(t, 1, rec.completes)
}

func TestRevealEmptyContentCompletesImmediately(t *testing.T) {
	e := NewEngine(5, time.Millisecond)
	rec := newRecorder()

	e.Start("", rec.onChunk, rec.onComplete)
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.deltas)
	assert.Equal(t, 1, rec.completes)
}

func TestRestartCancelsPriorReveal(t *testing.T) {
	e := NewEngine(1, 5*time.Millisecond)
	old := newRecorder()
	e.Start("a long answer that will not finish before the restart", old.onChunk, old.onComplete)

	// Give the first reveal a tick or two, then supplant it.
	time.Sleep(12 * time.Millisecond)
	fresh := newRecorder()
	e.Start("new", fresh.onChunk, fresh.onComplete)
	fresh.wait(t)

	// The old reveal must never report completion.
	time.Sleep(50 * time.Millisecond)
	old.mu.Lock()
	assert.Equal(t, 0, old.completes)
	old.mu.Unlock()

	fresh.mu.Lock()
	assert.Equal(t, 1, fresh.completes)
	assert.Equal(t, []string{"n", "e", "w"}, fresh.deltas)
	fresh.mu.Unlock()
}

func TestStopDropsCompletion(t *testing.T) {
	e := NewEngine(1, 5*time.Millisecond)
	rec := newRecorder()
	e.Start("something fairly long goes here", rec.onChunk, rec.onComplete)

	time.Sleep(12 * time.Millisecond)
	e.Stop()

	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, 0, rec.completes)
	rec.mu.Unlock()
}
