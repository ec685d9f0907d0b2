package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractContext pulls upstream trace context from the carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// sensitiveKeys never leave the process as span attributes.
var sensitiveKeys = []string{
	"secret",
	"signature",
	"authorization",
	"password",
	"payload",
	"cookie",
}

// SafeAttributes drops attributes whose key names sensitive material.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isSensitiveKey(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns an error safe to record on a span. Errors mentioning
// sensitive material are replaced with a generic message.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if isSensitiveKey(err.Error()) {
		return errors.New("redacted error")
	}
	return err
}

func isSensitiveKey(value string) bool {
	value = strings.ToLower(value)
	for _, key := range sensitiveKeys {
		if strings.Contains(value, key) {
			return true
		}
	}
	return false
}
