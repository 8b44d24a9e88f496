package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr error
	}{
		{name: "zero pool size", opt: WithBackgroundPoolSize(0), wantErr: ErrInvalidPoolSize},
		{name: "negative pool size", opt: WithBackgroundPoolSize(-1), wantErr: ErrInvalidPoolSize},
		{name: "zero cleanup count", opt: WithCleanupCount(0), wantErr: ErrInvalidCleanupCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.opt)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	b, err := New(WithLogger(nil), WithMetrics(nil))
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close(context.Background())) }()

	assert.NotEmpty(t, b.ID())
	assert.Len(t, b.owned, 2)
	assert.Equal(t, int64(DefaultCleanupCount), b.Stats().CleanupCount)
}

func TestNewKeepsProvidedExecutors(t *testing.T) {
	b := newSyncBus(t)
	assert.Empty(t, b.owned)
}

func TestDebugLogging(t *testing.T) {
	t.Cleanup(func() { SetDebug(false) })

	core, logs := observer.New(zapcore.DebugLevel)
	b := newSyncBus(t, WithLogger(zap.New(core)))

	SetDebug(false)
	require.NoError(t, b.Register(newRecorder(ClassOf[Foo](), Current)))
	assert.Zero(t, logs.FilterMessage("registered subscription").Len())

	SetDebug(true)
	assert.True(t, DebugEnabled())
	require.NoError(t, b.Register(newRecorder(ClassOf[Bar](), Current)))

	entries := logs.FilterMessage("registered subscription").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bus.Bar", entries[0].ContextMap()["event_class"])
	assert.Equal(t, "current", entries[0].ContextMap()["thread_mode"])
	assert.Equal(t, b.ID(), entries[0].ContextMap()["bus_id"])
}

func TestDefaultBus(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	assert.Same(t, original, Default())

	replacement := newSyncBus(t)
	SetDefault(replacement)
	assert.Same(t, replacement, Default())
}

func TestParseThreadMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ThreadMode
		wantErr bool
	}{
		{input: "current", want: Current},
		{input: "MAIN", want: Main},
		{input: "Background", want: Background},
		{input: "async", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseThreadMode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidThreadMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}

	assert.False(t, ThreadMode(3).Valid())
	assert.Equal(t, "ThreadMode(3)", ThreadMode(3).String())
}

func mustParse(t *testing.T, s string) ThreadMode {
	t.Helper()
	mode, err := ParseThreadMode(s)
	require.NoError(t, err)
	return mode
}
