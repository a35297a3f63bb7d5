package context

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ScannerIDKey is the context key for the authenticated scanner identity
	ScannerIDKey ContextKey = "scanner_id"
)

// ExtractScannerID extracts the scanner ID from the request context
func ExtractScannerID(ctx context.Context) (string, bool) {
	scannerID, ok := ctx.Value(ScannerIDKey).(string)
	return scannerID, ok
}

// WithScannerID adds the scanner ID to the context
func WithScannerID(ctx context.Context, scannerID string) context.Context {
	return context.WithValue(ctx, ScannerIDKey, scannerID)
}
