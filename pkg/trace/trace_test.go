package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTraceID(t *testing.T) {
	a := GenerateTraceID()
	b := GenerateTraceID()

	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FromContext(ctx))

	ctx = WithContext(ctx, "abc123")
	assert.Equal(t, "abc123", FromContext(ctx))
}

func TestFromHeaders(t *testing.T) {
	assert.Equal(t, "trace", FromHeaders("trace", "request"))
	assert.Equal(t, "request", FromHeaders("", "request"))
	assert.Len(t, FromHeaders("", ""), 32)
}
