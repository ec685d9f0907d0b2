package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, "", RequestIDFromContext(WithRequestID(context.Background(), " ")))
}

func TestClientIPRoundTrip(t *testing.T) {
	ctx := WithClientIP(context.Background(), "10.0.0.7")
	assert.Equal(t, "10.0.0.7", ClientIPFromContext(ctx))
}
