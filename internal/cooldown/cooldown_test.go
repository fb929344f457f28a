package cooldown

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/kvstore"
)

func TestGate(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unsuppressed before any report", func(t *testing.T) {
		gate := NewGate(kvstore.NewMemoryStore(), zap.NewNop())
		assert.False(t, gate.IsSuppressed(base))
	})

	t.Run("suppressed inside the window", func(t *testing.T) {
		gate := NewGate(kvstore.NewMemoryStore(), zap.NewNop())
		gate.RecordReportCreated(base)

		assert.True(t, gate.IsSuppressed(base))
		assert.True(t, gate.IsSuppressed(base.Add(59*time.Second)))
	})

	t.Run("unsuppressed after the window", func(t *testing.T) {
		gate := NewGate(kvstore.NewMemoryStore(), zap.NewNop())
		gate.RecordReportCreated(base)

		assert.False(t, gate.IsSuppressed(base.Add(60*time.Second)))
		assert.False(t, gate.IsSuppressed(base.Add(61*time.Second)))
	})

	t.Run("timestamp survives a restart", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()

		gate := NewGate(kv, zap.NewNop())
		gate.RecordReportCreated(base)

		restored := NewGate(kv, zap.NewNop())
		assert.True(t, restored.IsSuppressed(base.Add(30*time.Second)))
		assert.False(t, restored.IsSuppressed(base.Add(2*time.Minute)))
	})

	t.Run("corrupt persisted timestamp starts unsuppressed", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		require.NoError(t, kv.Put(kvstore.KeyLastReportTimestamp, []byte("not a timestamp")))

		gate := NewGate(kv, zap.NewNop())
		assert.False(t, gate.IsSuppressed(base))
	})

	t.Run("persisted form is a JSON timestamp", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		gate := NewGate(kv, zap.NewNop())
		gate.RecordReportCreated(base)

		data, err := kv.Get(kvstore.KeyLastReportTimestamp)
		require.NoError(t, err)

		var stored time.Time
		require.NoError(t, json.Unmarshal(data, &stored))
		assert.True(t, stored.Equal(base))
	})
}
