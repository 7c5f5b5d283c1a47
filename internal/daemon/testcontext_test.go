package daemon

import (
	"context"
	"testing"
)

// testContext returns a context canceled when the test ends. It stands in for
// testing.T.Context, which needs a newer Go toolchain than this module builds
// with.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
