package lifecycle

import (
	"context"
	"fmt"
)

// Attempts to mint and insert before a business-identifier collision is
// treated as fatal. Collisions are expected to be rare — the counter is an
// atomic reservation — but the unique index is the final authority.
const maxMintAttempts = 3

// mintBusinessID generates the next business identifier for a kind. The
// sequence number comes from the store's atomic increment-and-fetch, so two
// concurrent creations can never observe the same value; a plain
// read-then-increment here would mint duplicate identifiers under load.
func (s *Service) mintBusinessID(ctx context.Context, spec *KindSpec) (string, error) {
	seq, err := s.store.NextSequence(ctx, counterName(spec))
	if err != nil {
		return "", fmt.Errorf("reserve sequence for %s: %w", spec.Kind, err)
	}
	switch spec.Scheme {
	case SchemeTimestamp:
		return fmt.Sprintf("%s-%d-%d", spec.IDPrefix, s.now().UnixMilli(), seq), nil
	default:
		return fmt.Sprintf("%s%0*d", spec.IDPrefix, spec.CounterWidth, seq), nil
	}
}

func counterName(spec *KindSpec) string {
	return "records." + string(spec.Kind)
}
