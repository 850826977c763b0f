package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const (
	turnLockTTL     = 60 * time.Second
	turnLockBackoff = 250 * time.Millisecond
	turnLockRetries = 120
)

// TurnLocker serialises turns of one chat session across instances. A turn waits
// up to turnLockRetries*turnLockBackoff for the previous one; after that, or when
// Redis is unavailable, it runs unlocked.
type TurnLocker struct {
	locks   *redislock.Client
	ttl     time.Duration
	backoff time.Duration
	retries int
	logger  *logrus.Logger
}

func NewTurnLocker(locks *redislock.Client, logger *logrus.Logger) *TurnLocker {
	return &TurnLocker{
		locks:   locks,
		ttl:     turnLockTTL,
		backoff: turnLockBackoff,
		retries: turnLockRetries,
		logger:  logger,
	}
}

func (l *TurnLocker) obtainOptions() *redislock.Options {
	return &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	}
}

// Acquire waits for the session's lock and returns its release func.
func (l *TurnLocker) Acquire(ctx context.Context, sessionId int) func() {
	if l == nil || l.locks == nil {
		return func() {}
	}
	key := fmt.Sprintf("turn:%d", sessionId)
	lock, err := l.locks.Obtain(ctx, key, l.ttl, l.obtainOptions())
	if err != nil {
		msg := "error obtaining redis lock; proceeding without redis lock: " + err.Error()
		if errors.Is(err, redislock.ErrNotObtained) {
			msg = "timed out waiting for redis lock; proceeding without redis lock"
		}
		l.warn(sessionId, msg)
		return func() {}
	}
	return func() {
		// the request context may already be cancelled
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.warn(sessionId, "failed to release redis lock: "+releaseErr.Error())
		}
	}
}

func (l *TurnLocker) warn(sessionId int, msg string) {
	if l.logger == nil {
		return
	}
	l.logger.WithFields(logrus.Fields{
		"field":      "TurnLocker",
		"session_id": sessionId,
	}).Warn(msg)
}
