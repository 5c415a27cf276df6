package reload

import (
	"testing"

	"go.uber.org/goleak"
)

// Tests here drive a real Lifecycle and Handler through runCycle; verify no
// reap/readServerLoop/watchCrash goroutine outlives the test that started it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
