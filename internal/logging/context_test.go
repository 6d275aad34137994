package logging

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "abc-123")
	if got := RequestIDFromContext(ctx); got != "abc-123" {
		t.Errorf("expected 'abc-123', got %q", got)
	}
}

func TestLoggerRoundTrip(t *testing.T) {
	ctx := context.Background()

	// Missing logger returns nop, never nil
	if got := FromContext(ctx); got == nil {
		t.Fatal("FromContext() returned nil")
	}

	logger := NewNop()
	ctx = WithLogger(ctx, logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext() did not return stored logger")
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if fields := ContextFields(ctx); len(fields) != 0 {
		t.Errorf("expected no fields for bare context, got %d", len(fields))
	}

	ctx = WithRequestID(ctx, "r1")
	fields := ContextFields(ctx)
	if len(fields) != 1 || fields[0].Key != "request.id" {
		t.Errorf("expected request.id field, got %v", fields)
	}
}
