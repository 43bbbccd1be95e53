package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	AddFields(ctx, "account", "0xf39F")
	AddFields(ctx, "amount", "1")
	ExtractLogger(ctx).Info("POST /api/v1/deposit")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "0xf39F", fields["account"])
	assert.Equal(t, "1", fields["amount"])
}

func TestContextLogger_Missing(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		AddFields(ctx, "ignored", true)
		ExtractLogger(ctx).Info("dropped")
	})
}
