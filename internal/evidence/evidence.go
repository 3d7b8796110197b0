// Package evidence verifies that a claim's proof-of-ownership reference
// points at durably stored content. The core never reads the blobs
// themselves; it only needs to know the ref is real before accepting a claim.
package evidence

import (
	"context"
	"strings"

	dErrors "lofo/pkg/domain-errors"
)

// Verifier checks that an evidence ref resolves to stored content.
// Implementations must return CodeValidation for refs that are transient
// client-side handles or that do not resolve.
type Verifier interface {
	Verify(ctx context.Context, ref string) error
}

// transientSchemes are client-side handles that never denote durable storage.
var transientSchemes = []string{"file://", "data:", "blob:", "tmp://"}

// ParseRef splits an evidence ref into bucket and key. Accepted forms are
// "s3://bucket/key" and a bare key into the default bucket.
func ParseRef(ref, defaultBucket string) (bucket, key string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", dErrors.New(dErrors.CodeValidation, "evidence ref is required")
	}
	for _, scheme := range transientSchemes {
		if strings.HasPrefix(ref, scheme) {
			return "", "", dErrors.New(dErrors.CodeValidation, "evidence ref must reference durably stored content")
		}
	}
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		b, k, found := strings.Cut(rest, "/")
		if !found || b == "" || k == "" {
			return "", "", dErrors.New(dErrors.CodeValidation, "malformed evidence ref")
		}
		return b, k, nil
	}
	if strings.Contains(ref, "://") {
		return "", "", dErrors.New(dErrors.CodeValidation, "unsupported evidence ref scheme")
	}
	return defaultBucket, ref, nil
}

// RefOnlyVerifier accepts any well-formed durable ref without consulting the
// blob store. Dev mode fallback when no object storage is configured.
type RefOnlyVerifier struct{}

func (RefOnlyVerifier) Verify(_ context.Context, ref string) error {
	_, _, err := ParseRef(ref, "local")
	return err
}
