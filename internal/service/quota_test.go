package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	repoMocks "docvault/internal/repository/mocks"
)

func TestQuotaCalculator_Fits(t *testing.T) {
	ctx := context.Background()
	const limit = 200

	tests := []struct {
		name     string
		used     int64
		incoming int64
		want     bool
	}{
		{name: "well under the ceiling", used: 50, incoming: 50, want: true},
		{name: "exactly at the ceiling", used: 150, incoming: 50, want: true},
		{name: "one byte over", used: 150, incoming: 51, want: false},
		{name: "negative incoming treated as zero", used: 200, incoming: -10, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mDocs := new(repoMocks.MockDocumentRepository)
			mDocs.On("SumActiveSizeByOwner", ctx, "user-1").Return(tt.used, nil)

			q := NewQuotaCalculator(mDocs, limit)
			got, err := q.Fits(ctx, "user-1", tt.incoming)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuotaCalculator_FitsRepositoryError(t *testing.T) {
	mDocs := new(repoMocks.MockDocumentRepository)
	mDocs.On("SumActiveSizeByOwner", context.Background(), "user-1").
		Return(int64(0), errors.New("db fail"))

	q := NewQuotaCalculator(mDocs, 200)
	_, err := q.Fits(context.Background(), "user-1", 10)
	assert.Error(t, err)
}

func TestQuotaCalculator_Limit(t *testing.T) {
	q := NewQuotaCalculator(nil, 12345)
	assert.Equal(t, int64(12345), q.Limit())
}
