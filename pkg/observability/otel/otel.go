//go:build !otelotlp

package otelobs

import (
	"context"
	"net/http"
)

// InitTracer is a no-op by default to keep builds lightweight. Build with
// -tags otelotlp for a real OTLP implementation.
func InitTracer(serviceName string) func(context.Context) error {
	return func(context.Context) error { return nil }
}

// WrapHTTPHandler is a no-op by default. Build with -tags otelotlp to
// produce server spans.
func WrapHTTPHandler(serviceName string, h http.Handler) http.Handler { return h }
