package lifecycle

import (
	"testing"

	"go.uber.org/goleak"
)

// Lifecycle.Start/Restart spawn a reap goroutine and poll for readiness;
// verify none of them outlive the tests that start them.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
