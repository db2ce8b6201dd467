package memory

import (
	"sync"
	"testing"
	"time"

	"lexchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffConsumeRemovesSlot(t *testing.T) {
	store := NewHandoffStore()
	id := uuid.New()

	store.Put(id, &entity.PendingHandoff{Question: "q", Ready: true, CreatedAt: time.Now()})

	peeked, ok := store.Peek(id)
	require.True(t, ok)
	assert.Equal(t, "q", peeked.Question)

	consumed, ok := store.Consume(id)
	require.True(t, ok)
	assert.Equal(t, "q", consumed.Question)

	_, ok = store.Peek(id)
	assert.False(t, ok)
	_, ok = store.Consume(id)
	assert.False(t, ok)
}

func TestHandoffConsumeExactlyOnceUnderConcurrency(t *testing.T) {
	store := NewHandoffStore()
	id := uuid.New()
	store.Put(id, &entity.PendingHandoff{Question: "q", Ready: true, CreatedAt: time.Now()})

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.Consume(id); ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one consumer wins")
}

func TestHandoffDiscard(t *testing.T) {
	store := NewHandoffStore()
	id := uuid.New()
	store.Put(id, &entity.PendingHandoff{Question: "q", Ready: true, CreatedAt: time.Now()})

	store.Discard(id)
	_, ok := store.Consume(id)
	assert.False(t, ok)
}
