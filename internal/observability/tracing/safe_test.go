package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/webhook"),
		attribute.String("webhook.secret", "abc"),
		attribute.String("X-OilPriceAPI-Signature", "deadbeef"),
		attribute.Int("http.status_code", 200),
	)
	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, string(a.Key))
	}
	assert.Equal(t, []string{"http.route", "http.status_code"}, keys)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	plain := errors.New("database is locked")
	assert.Equal(t, plain, SafeError(plain))

	assert.EqualError(t, SafeError(errors.New("bad secret value 123")), "redacted error")
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}
