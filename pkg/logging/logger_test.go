package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/logx"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  uint32
	}{
		{"debug", logx.DebugLevel},
		{" INFO ", logx.InfoLevel},
		{"error", logx.ErrorLevel},
		{"fatal", logx.SevereLevel},
		{"", logx.InfoLevel},
		{"bogus", logx.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level))
		})
	}
}

func TestLogxLoggerMethods(t *testing.T) {
	logx.Disable()
	logger := NewLogger("transform")
	require.Implements(t, (*Logger)(nil), logger)
	ctx := context.Background()

	require.NotPanics(t, func() {
		logger.Debug(ctx, "debug message", Fields{"asset_id": "bitcoin"})
		logger.Info(ctx, "info message", nil)
		logger.Warn(ctx, "warning message", Fields{"n": 1})
		logger.Error(ctx, errors.New("boom"), Fields{"stage": "load"})
		logger.Error(ctx, nil, nil)
	})
}

func TestLogFieldsAreSortedAndTagged(t *testing.T) {
	l := &logxLogger{component: "load"}
	fields := l.logFields(Fields{"b": 2, "a": 1})
	require.Len(t, fields, 3)
	assert.Equal(t, "component", fields[0].Key)
	assert.Equal(t, "a", fields[1].Key)
	assert.Equal(t, "b", fields[2].Key)
}

func TestMemoryCapturesEvents(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	fields := Fields{"asset_id": "ether"}
	mem.Warn(ctx, "skipped", fields)
	fields["asset_id"] = "mutated"
	mem.Info(ctx, "done", nil)
	mem.Error(ctx, errors.New("fail"), nil)

	assert.Equal(t, 1, mem.Count(LevelWarn))
	assert.Equal(t, 1, mem.Count(LevelInfo))
	assert.Equal(t, 0, mem.Count(LevelDebug))

	entry, ok := mem.Find(LevelWarn, "skipped")
	require.True(t, ok)
	assert.Equal(t, "ether", entry.Fields["asset_id"])

	_, ok = mem.Find(LevelError, "fail")
	assert.True(t, ok)
	assert.Len(t, mem.Entries(), 3)
}

func TestWithRunIDKeepsParentValues(t *testing.T) {
	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "v")
	ctx := WithRunID(parent, "run-1")
	assert.NotEqual(t, parent, ctx)
	assert.Equal(t, "v", ctx.Value(key{}))
	assert.NotPanics(t, func() { NewLogger("test").Info(ctx, "tagged", nil) })
}
