package envutil

import (
	"context"
	"maps"
)

type envContextKey struct{}

// WithEnvOverride returns a context in which key reads as value, regardless
// of the process environment.
func WithEnvOverride(ctx context.Context, key string, value string) context.Context {
	return WithEnvOverrides(ctx, map[string]string{key: value})
}

// WithEnvOverrides is WithEnvOverride for several keys at once. Later
// overrides win.
func WithEnvOverrides(ctx context.Context, values map[string]string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	merged := make(map[string]string)
	if existing, ok := ctx.Value(envContextKey{}).(map[string]string); ok {
		maps.Copy(merged, existing)
	}

	maps.Copy(merged, values)

	return context.WithValue(ctx, envContextKey{}, merged)
}

func getEnvOverride(ctx context.Context, key string) (string, bool) {
	if ctx == nil {
		return "", false
	}

	overrides, ok := ctx.Value(envContextKey{}).(map[string]string)
	if !ok {
		return "", false
	}

	val, ok := overrides[key]

	return val, ok
}
