package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// ReadinessPolicy parameterizes ReadinessChecker. Zero value is invalid;
// use DefaultReadinessPolicy.
type ReadinessPolicy struct {
	CheckInterval time.Duration
	Timeout       time.Duration
	SettleDelay   time.Duration
}

// DefaultReadinessPolicy matches spec.md §4.5's default tier: poll every
// 50ms, give up after 2s, and let a positive observation settle for 100ms
// before trusting it (some servers open stdin before they've finished
// setting up signal handlers and early writes can be lost).
func DefaultReadinessPolicy() ReadinessPolicy {
	return ReadinessPolicy{
		CheckInterval: 50 * time.Millisecond,
		Timeout:       2 * time.Second,
		SettleDelay:   100 * time.Millisecond,
	}
}

// ReadinessChecker polls a Connection until its child looks ready to
// receive traffic, or gives up.
type ReadinessChecker struct {
	policy ReadinessPolicy
}

// NewReadinessChecker builds a checker with the given policy.
func NewReadinessChecker(policy ReadinessPolicy) *ReadinessChecker {
	return &ReadinessChecker{policy: policy}
}

// WaitReady blocks until conn's child is observed alive with a writable
// stdin, settles for SettleDelay, and returns nil — or returns a
// distinguishable error if the timeout elapses or the child exits first.
func (r *ReadinessChecker) WaitReady(ctx context.Context, conn *Connection) error {
	deadline := time.Now().Add(r.policy.Timeout)
	ticker := time.NewTicker(r.policy.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.WaitForCrash():
			return ErrExitedDuringReadiness
		case <-ctx.Done():
			return fmt.Errorf("readiness: %w", ctx.Err())
		default:
		}

		if r.observeReady(conn) {
			select {
			case <-time.After(r.policy.SettleDelay):
				return nil
			case <-conn.WaitForCrash():
				return ErrExitedDuringReadiness
			case <-ctx.Done():
				return fmt.Errorf("readiness: %w", ctx.Err())
			}
		}

		if time.Now().After(deadline) {
			return ErrReadinessTimeout
		}

		select {
		case <-ticker.C:
		case <-conn.WaitForCrash():
			return ErrExitedDuringReadiness
		case <-ctx.Done():
			return fmt.Errorf("readiness: %w", ctx.Err())
		}
	}
}

// observeReady checks the two conditions spec.md §4.5 names: the child
// hasn't exited, and its stdin looks writable. A zero-length write is a
// cheap, side-effect-free probe that surfaces a closed pipe immediately.
func (r *ReadinessChecker) observeReady(conn *Connection) bool {
	if !conn.IsAlive() {
		return false
	}
	if _, err := conn.stdin.Write(nil); err != nil {
		return false
	}
	return true
}
