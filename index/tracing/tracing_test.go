package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "ton-wallet-indexer", "", true)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := Tracer("test").Start(context.Background(), "cycle")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
