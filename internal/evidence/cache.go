package evidence

import (
	"context"
	"log/slog"
	"time"

	platformredis "lofo/internal/platform/redis"
	dErrors "lofo/pkg/domain-errors"
)

const cacheKeyPrefix = "lofo:evidence:verified:"

// CachedVerifier memoizes positive verification results in Redis so repeated
// claim attempts against the same photo do not hammer the blob store.
// Failures are never cached; a retried ref is always re-checked.
type CachedVerifier struct {
	inner  Verifier
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedVerifier wraps inner with a Redis result cache. A nil client
// returns inner unchanged.
func NewCachedVerifier(inner Verifier, redis *platformredis.Client, ttl time.Duration, logger *slog.Logger) Verifier {
	if redis == nil {
		return inner
	}
	return &CachedVerifier{inner: inner, redis: redis, ttl: ttl, logger: logger}
}

func (v *CachedVerifier) Verify(ctx context.Context, ref string) error {
	key := cacheKeyPrefix + ref
	if hit, err := v.redis.Exists(ctx, key).Result(); err == nil && hit > 0 {
		return nil
	} else if err != nil && v.logger != nil {
		v.logger.WarnContext(ctx, "evidence cache read failed", "error", err)
	}

	if err := v.inner.Verify(ctx, ref); err != nil {
		return err
	}

	if err := v.redis.Set(ctx, key, "1", v.ttl).Err(); err != nil && v.logger != nil {
		// Cache write failure must not fail the verification.
		v.logger.WarnContext(ctx, "evidence cache write failed", "error", err)
	}
	return nil
}

// StaticVerifier is an in-memory Verifier for tests and the no-S3 dev mode.
// Only refs registered with Put verify successfully.
type StaticVerifier struct {
	refs map[string]struct{}
}

// NewStaticVerifier builds an empty static verifier.
func NewStaticVerifier(refs ...string) *StaticVerifier {
	v := &StaticVerifier{refs: make(map[string]struct{}, len(refs))}
	for _, ref := range refs {
		v.refs[ref] = struct{}{}
	}
	return v
}

// Put registers a ref as durably stored.
func (v *StaticVerifier) Put(ref string) { v.refs[ref] = struct{}{} }

func (v *StaticVerifier) Verify(_ context.Context, ref string) error {
	if _, _, err := ParseRef(ref, "static"); err != nil {
		return err
	}
	if _, ok := v.refs[ref]; !ok {
		return dErrors.New(dErrors.CodeValidation, "evidence ref does not resolve to stored content")
	}
	return nil
}
