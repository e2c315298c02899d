package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
	svcMocks "docvault/internal/service/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
)

var sweepNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReaper(t *testing.T, docs *repoMocks.MockDocumentRepository, perms *repoMocks.MockPermissionRepository, store *storeMocks.MockStorage, lifecycle *svcMocks.MockDocumentLifecycle, retention time.Duration) *Reaper {
	t.Helper()
	r, err := New(
		docs, perms, store, lifecycle,
		retention, time.Hour, 24*time.Hour,
		testclock.NewClock(sweepNow), zerolog.Nop(), prometheus.NewRegistry(),
	)
	assert.NoError(t, err)
	return r
}

func TestReaper_SweepTrash(t *testing.T) {
	retention := 48 * time.Hour
	cutoff := sweepNow.Add(-retention)

	expired := sweepNow.Add(-72 * time.Hour)
	alsoExpired := sweepNow.Add(-49 * time.Hour)

	t.Run("purges everything past retention", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		mPerms := new(repoMocks.MockPermissionRepository)
		mLifecycle := new(svcMocks.MockDocumentLifecycle)
		r := newTestReaper(t, mDocs, mPerms, new(storeMocks.MockStorage), mLifecycle, retention)

		mDocs.On("ListTrashedBefore", mock.Anything, cutoff).Return([]model.Document{
			{ID: "doc-1", TrashedAt: &expired},
			{ID: "doc-2", TrashedAt: &alsoExpired},
		}, nil)
		mLifecycle.On("AutoPurge", mock.Anything, mock.MatchedBy(func(d *model.Document) bool { return d.ID == "doc-1" })).Return(nil).Once()
		mLifecycle.On("AutoPurge", mock.Anything, mock.MatchedBy(func(d *model.Document) bool { return d.ID == "doc-2" })).Return(nil).Once()
		mPerms.On("DeleteExpiredBefore", mock.Anything, cutoff).Return(int64(0), nil)

		purged, err := r.SweepTrash(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, purged)
		mLifecycle.AssertExpectations(t)
		mPerms.AssertExpectations(t)
	})

	t.Run("one failed purge does not block the rest", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		mPerms := new(repoMocks.MockPermissionRepository)
		mLifecycle := new(svcMocks.MockDocumentLifecycle)
		r := newTestReaper(t, mDocs, mPerms, new(storeMocks.MockStorage), mLifecycle, retention)

		mDocs.On("ListTrashedBefore", mock.Anything, cutoff).Return([]model.Document{
			{ID: "doc-1", TrashedAt: &expired},
			{ID: "doc-2", TrashedAt: &expired},
		}, nil)
		mLifecycle.On("AutoPurge", mock.Anything, mock.MatchedBy(func(d *model.Document) bool { return d.ID == "doc-1" })).
			Return(errors.New("bucket down")).Once()
		mLifecycle.On("AutoPurge", mock.Anything, mock.MatchedBy(func(d *model.Document) bool { return d.ID == "doc-2" })).
			Return(nil).Once()
		mPerms.On("DeleteExpiredBefore", mock.Anything, cutoff).Return(int64(3), nil)

		purged, err := r.SweepTrash(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, purged)
		mLifecycle.AssertExpectations(t)
	})

	t.Run("documents inside the window are left alone", func(t *testing.T) {
		fresh := sweepNow.Add(-time.Hour)
		mDocs := new(repoMocks.MockDocumentRepository)
		mPerms := new(repoMocks.MockPermissionRepository)
		mLifecycle := new(svcMocks.MockDocumentLifecycle)
		r := newTestReaper(t, mDocs, mPerms, new(storeMocks.MockStorage), mLifecycle, retention)

		// The query normally excludes these already.
		mDocs.On("ListTrashedBefore", mock.Anything, cutoff).Return([]model.Document{
			{ID: "doc-1", TrashedAt: &fresh},
		}, nil)
		mPerms.On("DeleteExpiredBefore", mock.Anything, cutoff).Return(int64(0), nil)

		purged, err := r.SweepTrash(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 0, purged)
		mLifecycle.AssertNotCalled(t, "AutoPurge", mock.Anything, mock.Anything)
	})

	t.Run("listing failure aborts the sweep", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		r := newTestReaper(t, mDocs, new(repoMocks.MockPermissionRepository), new(storeMocks.MockStorage), new(svcMocks.MockDocumentLifecycle), retention)

		mDocs.On("ListTrashedBefore", mock.Anything, cutoff).Return(nil, errors.New("db fail"))

		_, err := r.SweepTrash(context.Background())
		assert.Error(t, err)
	})

	t.Run("grant cleanup failure does not fail the sweep", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		mPerms := new(repoMocks.MockPermissionRepository)
		r := newTestReaper(t, mDocs, mPerms, new(storeMocks.MockStorage), new(svcMocks.MockDocumentLifecycle), retention)

		mDocs.On("ListTrashedBefore", mock.Anything, cutoff).Return([]model.Document{}, nil)
		mPerms.On("DeleteExpiredBefore", mock.Anything, cutoff).Return(int64(0), errors.New("db fail"))

		purged, err := r.SweepTrash(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 0, purged)
	})
}

func TestReaper_SweepOrphans(t *testing.T) {
	t.Run("deletes unreferenced blobs only", func(t *testing.T) {
		mDocs := new(repoMocks.MockDocumentRepository)
		mStore := new(storeMocks.MockStorage)
		r := newTestReaper(t, mDocs, new(repoMocks.MockPermissionRepository), mStore, new(svcMocks.MockDocumentLifecycle), 48*time.Hour)

		mStore.On("List", mock.Anything, "documents/").Return([]storage.ObjectInfo{
			{Key: "documents/referenced.pdf"},
			{Key: "documents/orphan-1.pdf"},
			{Key: "documents/orphan-2.pdf"},
		}, nil)
		mDocs.On("ListStoragePaths", mock.Anything).Return([]string{"documents/referenced.pdf"}, nil)
		mStore.On("Delete", mock.Anything, "documents/orphan-1.pdf").Return(nil).Once()
		mStore.On("Delete", mock.Anything, "documents/orphan-2.pdf").Return(errors.New("bucket down")).Once()

		deleted, err := r.SweepOrphans(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, deleted)
		mStore.AssertExpectations(t)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, "documents/referenced.pdf")
	})

	t.Run("listing failure aborts the sweep", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		r := newTestReaper(t, new(repoMocks.MockDocumentRepository), new(repoMocks.MockPermissionRepository), mStore, new(svcMocks.MockDocumentLifecycle), 48*time.Hour)

		mStore.On("List", mock.Anything, "documents/").Return(nil, errors.New("bucket down"))

		_, err := r.SweepOrphans(context.Background())
		assert.Error(t, err)
	})
}

func TestReaper_TickDrivesTrashSweep(t *testing.T) {
	clk := testclock.NewClock(sweepNow)
	mDocs := new(repoMocks.MockDocumentRepository)
	mPerms := new(repoMocks.MockPermissionRepository)
	mStore := new(storeMocks.MockStorage)
	r, err := New(
		mDocs, mPerms, mStore, new(svcMocks.MockDocumentLifecycle),
		48*time.Hour, time.Hour, 24*time.Hour,
		clk, zerolog.Nop(), prometheus.NewRegistry(),
	)
	assert.NoError(t, err)

	swept := make(chan struct{}, 1)
	mDocs.On("ListTrashedBefore", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		}).
		Return([]model.Document{}, nil)
	mPerms.On("DeleteExpiredBefore", mock.Anything, mock.Anything).Return(int64(0), nil)

	r.Start()
	defer r.Stop()

	// Both loops park a timer on the test clock; one hour fires only the
	// trash sweep, the orphan sweep stays scheduled.
	assert.NoError(t, clk.WaitAdvance(time.Hour, time.Second, 2))

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("trash sweep did not run on the tick")
	}
	mStore.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestReaper_StartStop(t *testing.T) {
	r := newTestReaper(t,
		new(repoMocks.MockDocumentRepository),
		new(repoMocks.MockPermissionRepository),
		new(storeMocks.MockStorage),
		new(svcMocks.MockDocumentLifecycle),
		48*time.Hour,
	)

	r.Start()
	r.Stop()
	// Stop is idempotent.
	r.Stop()
}
