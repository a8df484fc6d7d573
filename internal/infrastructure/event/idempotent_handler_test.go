package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

type mapStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (s *mapStore) MarkProcessed(_ context.Context, id string, _ time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	return true, nil
}

func (s *mapStore) IsProcessed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id], nil
}

func (s *mapStore) Close() error { return nil }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate delivery is skipped", func(t *testing.T) {
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, &mapStore{seen: map[string]bool{}}, shared.DefaultIdempotencyConfig(), zap.NewNop())
		e := statusEvent(ordering.EventTypeOrderConfirmed)

		require.NoError(t, h.Handle(ctx, e))
		require.NoError(t, h.Handle(ctx, e))

		assert.Len(t, inner.seen, 1)
		assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
	})

	t.Run("scopes are independent", func(t *testing.T) {
		store := &mapStore{seen: map[string]bool{}}
		audit, notify := &recordingHandler{}, &recordingHandler{}
		auditCfg, notifyCfg := shared.DefaultIdempotencyConfig(), shared.DefaultIdempotencyConfig()
		auditCfg.Scope, notifyCfg.Scope = "audit", "notify"
		e := statusEvent(ordering.EventTypeOrderCompleted)

		require.NoError(t, NewIdempotentHandler(audit, store, auditCfg, zap.NewNop()).Handle(ctx, e))
		require.NoError(t, NewIdempotentHandler(notify, store, notifyCfg, zap.NewNop()).Handle(ctx, e))

		assert.Len(t, audit.seen, 1)
		assert.Len(t, notify.seen, 1)
		assert.True(t, store.seen["audit:"+e.EventID().String()])
	})

	t.Run("store failure still processes", func(t *testing.T) {
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, &mapStore{err: errors.New("redis down")}, shared.DefaultIdempotencyConfig(), zap.NewNop())

		require.NoError(t, h.Handle(ctx, statusEvent(ordering.EventTypeOrderConfirmed)))
		assert.Len(t, inner.seen, 1)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, &mapStore{seen: map[string]bool{}}, shared.IdempotencyConfig{Enabled: false}, zap.NewNop())
		e := statusEvent(ordering.EventTypeOrderConfirmed)

		require.NoError(t, h.Handle(ctx, e))
		require.NoError(t, h.Handle(ctx, e))
		assert.Len(t, inner.seen, 2)
	})

	t.Run("handler failure is counted", func(t *testing.T) {
		inner := &recordingHandler{err: errors.New("nope")}
		h := NewIdempotentHandler(inner, &mapStore{seen: map[string]bool{}}, shared.DefaultIdempotencyConfig(), zap.NewNop())

		assert.Error(t, h.Handle(ctx, statusEvent(ordering.EventTypeOrderConfirmed)))
		assert.Equal(t, int64(1), h.Stats().EventsFailed)
	})
}
