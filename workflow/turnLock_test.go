package workflow

import (
	"context"
	"testing"
	"time"
)

func TestTurnLockerWithoutRedisIsNoop(t *testing.T) {
	var nilLocker *TurnLocker
	nilLocker.Acquire(context.Background(), 1)()

	NewTurnLocker(nil, nil).Acquire(context.Background(), 1)()
}

func TestTurnLockerWaitIsBounded(t *testing.T) {
	l := NewTurnLocker(nil, nil)
	strategy := l.obtainOptions().RetryStrategy
	if strategy == nil {
		t.Fatalf("turn lock must retry while another turn holds it")
	}

	var waited time.Duration
	for i := 0; i < turnLockRetries+5; i++ {
		d := strategy.NextBackoff()
		if d == 0 {
			break
		}
		waited += d
	}
	if want := time.Duration(turnLockRetries) * turnLockBackoff; waited != want {
		t.Fatalf("total wait = %s, want %s", waited, want)
	}
	if waited >= turnLockTTL {
		t.Fatalf("wait %s must stay below the lock ttl %s", waited, turnLockTTL)
	}
}
