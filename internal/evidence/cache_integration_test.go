//go:build integration

package evidence_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lofo/internal/evidence"
	platformredis "lofo/internal/platform/redis"
	"lofo/pkg/testutil/containers"
)

// countingVerifier tracks how often the wrapped verifier is consulted.
type countingVerifier struct {
	inner evidence.Verifier
	calls atomic.Int32
}

func (v *countingVerifier) Verify(ctx context.Context, ref string) error {
	v.calls.Add(1)
	return v.inner.Verify(ctx, ref)
}

type CachedVerifierSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestCachedVerifierSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedVerifierSuite))
}

func (s *CachedVerifierSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CachedVerifierSuite) SetupTest() {
	err := s.redis.Client.FlushAll(context.Background()).Err()
	s.Require().NoError(err)
}

func (s *CachedVerifierSuite) client() *platformredis.Client {
	return &platformredis.Client{Client: s.redis.Client}
}

func (s *CachedVerifierSuite) TestPositiveResultIsMemoized() {
	ctx := context.Background()
	const ref = "s3://evidence/receipt.jpg"

	counting := &countingVerifier{inner: evidence.NewStaticVerifier(ref)}
	v := evidence.NewCachedVerifier(counting, s.client(), time.Minute, nil)

	for i := 0; i < 5; i++ {
		s.Require().NoError(v.Verify(ctx, ref))
	}
	s.Equal(int32(1), counting.calls.Load(), "only the first check should reach the blob store")
}

func (s *CachedVerifierSuite) TestFailuresAreNeverCached() {
	ctx := context.Background()
	const ref = "s3://evidence/missing.jpg"

	static := evidence.NewStaticVerifier()
	counting := &countingVerifier{inner: static}
	v := evidence.NewCachedVerifier(counting, s.client(), time.Minute, nil)

	s.Error(v.Verify(ctx, ref))
	s.Error(v.Verify(ctx, ref))
	s.Equal(int32(2), counting.calls.Load(), "a failed ref must be re-checked")

	// Once the content exists the same ref verifies and starts caching.
	static.Put(ref)
	s.Require().NoError(v.Verify(ctx, ref))
	s.Require().NoError(v.Verify(ctx, ref))
	s.Equal(int32(3), counting.calls.Load())
}

func (s *CachedVerifierSuite) TestCacheEntryExpires() {
	ctx := context.Background()
	const ref = "s3://evidence/ticket.png"

	counting := &countingVerifier{inner: evidence.NewStaticVerifier(ref)}
	v := evidence.NewCachedVerifier(counting, s.client(), 100*time.Millisecond, nil)

	s.Require().NoError(v.Verify(ctx, ref))
	time.Sleep(200 * time.Millisecond)
	s.Require().NoError(v.Verify(ctx, ref))
	s.Equal(int32(2), counting.calls.Load(), "an expired entry should re-check")
}

func (s *CachedVerifierSuite) TestNilClientReturnsInner() {
	counting := &countingVerifier{inner: evidence.NewStaticVerifier()}
	v := evidence.NewCachedVerifier(counting, nil, time.Minute, nil)
	s.Same(evidence.Verifier(counting), v)
}
