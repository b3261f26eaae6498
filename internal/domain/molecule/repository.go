package molecule

import (
	"context"
)

// FingerprintRepository stores computed fingerprints by cache key so repeated
// runs over the same reference set skip parsing and hashing.
type FingerprintRepository interface {
	// Get returns errors.CodeNotFound when key is absent.
	Get(ctx context.Context, key string) (*Fingerprint, error)

	// Put stores fp under key, replacing any previous value.
	Put(ctx context.Context, key string, fp *Fingerprint) error
}

//Personal.AI order the ending
