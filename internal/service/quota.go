package service

import (
	"context"

	"docvault/internal/repository"
)

// QuotaCalculator checks proposed writes against the per-owner storage ceiling.
type QuotaCalculator interface {
	// Fits reports whether the owner can store incomingBytes more without
	// breaching the ceiling. Trashed documents do not count.
	Fits(ctx context.Context, ownerID string, incomingBytes int64) (bool, error)

	// Used returns the owner's current active byte total.
	Used(ctx context.Context, ownerID string) (int64, error)

	// Limit returns the configured ceiling in bytes.
	Limit() int64
}

// quotaCalculator recomputes usage from the store on every call. A cached
// counter would drift with trash and restore activity; per-owner document
// counts are small enough that the sum query is cheap.
type quotaCalculator struct {
	docs  repository.DocumentRepository
	limit int64
}

// NewQuotaCalculator constructs a QuotaCalculator with a deployment-wide
// limit. The owner parameter on Fits leaves room for per-user limits later.
func NewQuotaCalculator(docs repository.DocumentRepository, limitBytes int64) QuotaCalculator {
	return &quotaCalculator{docs: docs, limit: limitBytes}
}

func (q *quotaCalculator) Fits(ctx context.Context, ownerID string, incomingBytes int64) (bool, error) {
	if incomingBytes < 0 {
		incomingBytes = 0
	}
	used, err := q.docs.SumActiveSizeByOwner(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return used+incomingBytes <= q.limit, nil
}

func (q *quotaCalculator) Used(ctx context.Context, ownerID string) (int64, error) {
	return q.docs.SumActiveSizeByOwner(ctx, ownerID)
}

func (q *quotaCalculator) Limit() int64 {
	return q.limit
}
