// Package reveal paces the visual delivery of an already-complete answer.
// The full text is resident in memory; the engine only simulates incremental
// arrival on a fixed-period timer, independent of any network activity.
package reveal

import (
	"sync"
	"time"
)

// Engine reveals one string at a time per subscriber. Starting a new reveal
// cancels the one in flight, so a completion callback never fires twice and
// two reveals never overlap.
type Engine struct {
	chunkSize int
	period    time.Duration

	mu      sync.Mutex
	current *run
}

type run struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func (r *run) cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func NewEngine(chunkSize int, period time.Duration) *Engine {
	if chunkSize <= 0 {
		chunkSize = 5
	}
	if period <= 0 {
		period = 15 * time.Millisecond
	}
	return &Engine{chunkSize: chunkSize, period: period}
}

// Start begins revealing content. onChunk receives each newly revealed delta
// together with the full revealed prefix so far; onComplete fires exactly
// once, after the final chunk. A reveal already in progress is cancelled
// first and its onComplete never fires.
func (e *Engine) Start(content string, onChunk func(prefix, delta string), onComplete func()) {
	e.mu.Lock()
	if e.current != nil {
		e.current.cancel()
	}
	r := &run{stop: make(chan struct{})}
	e.current = r
	e.mu.Unlock()

	go e.pace(r, content, onChunk, onComplete)
}

// Stop cancels the reveal in flight, if any. The pending completion callback
// is dropped.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.current != nil {
		e.current.cancel()
		e.current = nil
	}
	e.mu.Unlock()
}

func (e *Engine) pace(r *run, content string, onChunk func(prefix, delta string), onComplete func()) {
	runes := []rune(content)
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	revealed := 0
	for revealed < len(runes) {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			next := revealed + e.chunkSize
			if next > len(runes) {
				next = len(runes)
			}
			if onChunk != nil {
				onChunk(string(runes[:next]), string(runes[revealed:next]))
			}
			revealed = next
		}
	}

	select {
	case <-r.stop:
		return
	default:
	}
	if onComplete != nil {
		onComplete()
	}
}
