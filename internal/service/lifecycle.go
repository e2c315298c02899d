package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// recentWindow bounds the "recent documents" listing and stats count.
const recentWindow = 7 * 24 * time.Hour

// presignExpiry is how long generated download links stay valid.
const presignExpiry = 15 * time.Minute

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// ActivityListResult is the service-level DTO for paginated activity entries.
type ActivityListResult struct {
	Items []model.ActivityRecord `json:"data"`
	Total int                    `json:"total"`
}

// DocumentStats mirrors repository.DocumentStats plus the configured ceiling.
type DocumentStats struct {
	Total        int64 `json:"total"`
	Recent       int64 `json:"recent"`
	Shared       int64 `json:"shared"`
	Trashed      int64 `json:"trash"`
	StorageUsed  int64 `json:"storage_used"`
	StorageLimit int64 `json:"storage_limit"`
}

// DocumentLifecycle owns the document state machine: active documents can be
// trashed, trashed documents restored or purged, and purge is terminal. All
// transitions check their precondition atomically against the store, emit an
// activity record, and never let an activity or notification failure undo
// the transition itself.
type DocumentLifecycle interface {
	// Upload stores the blob, then the metadata row, rolling the blob back
	// if the row insert fails. Fails with ErrQuotaExceeded before anything
	// is written when the owner's ceiling would be breached.
	Upload(ctx context.Context, ownerID, title string, r io.Reader, originalFilename, contentType string, size int64) (*model.Document, error)

	// Get returns a single document by its ID, trashed or not.
	Get(ctx context.Context, id string) (*model.Document, error)

	// ListActive lists non-trashed documents, optionally scoped to an owner,
	// filtered by a title substring, or narrowed to one folder.
	ListActive(ctx context.Context, ownerID, search, folderID string, limit, offset int) (*DocumentListResult, error)

	// ListTrash lists trashed documents, optionally scoped to an owner.
	ListTrash(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error)

	// ListShared lists active PUBLIC documents.
	ListShared(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// ListRecent lists active documents created within the last seven days.
	ListRecent(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Rename updates the display title of an active document.
	Rename(ctx context.Context, id, title, userID string) (*model.Document, error)

	// SoftDelete moves an active document to the trash. Trashing an
	// already-trashed document is a no-op success, not an error.
	SoftDelete(ctx context.Context, id, userID string) error

	// Restore brings a trashed document back to active. Fails with
	// ErrInvalidState when the document is not trashed.
	Restore(ctx context.Context, id, userID string) (*model.Document, error)

	// Purge permanently removes a trashed document and its blob. The row is
	// locked while trashed, the blob deleted first, then the row; a blob
	// failure aborts the purge so the row is kept for a later retry. Fails
	// with ErrInvalidState while the document is still active.
	Purge(ctx context.Context, id, userID string) error

	// AutoPurge is the reaper's variant of Purge: same ordering, but the
	// activity record is tagged AUTO_DELETED and carries no acting user.
	AutoPurge(ctx context.Context, doc *model.Document) error

	// Share makes an active document public at the given access level.
	// VIEW_AND_DOWNLOAD requires the blob upload to have completed.
	Share(ctx context.Context, id string, level model.ShareAccessLevel, userID string) (*model.Document, error)

	// PresignDownload returns a time-limited download URL for the blob and
	// records the download. The caller is responsible for authorization.
	PresignDownload(ctx context.Context, doc *model.Document, userID string) (string, error)

	// RecordView appends a view event to the activity log.
	RecordView(ctx context.Context, doc *model.Document, userID, action string)

	// Activities lists the activity log, optionally scoped to one document.
	Activities(ctx context.Context, documentID string, limit, offset int) (*ActivityListResult, error)

	// Stats returns dashboard aggregates.
	Stats(ctx context.Context) (*DocumentStats, error)
}

type documentLifecycle struct {
	store    storage.Storage
	docs     repository.DocumentRepository
	activity repository.ActivityRepository
	quota    QuotaCalculator
	notifier Notifier
	clk      clock.Clock
}

// NewDocumentLifecycle constructs the lifecycle service.
func NewDocumentLifecycle(
	store storage.Storage,
	docs repository.DocumentRepository,
	activity repository.ActivityRepository,
	quota QuotaCalculator,
	notifier Notifier,
	clk clock.Clock,
) DocumentLifecycle {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &documentLifecycle{
		store:    store,
		docs:     docs,
		activity: activity,
		quota:    quota,
		notifier: notifier,
		clk:      clk,
	}
}

func (s *documentLifecycle) Upload(ctx context.Context, ownerID, title string, r io.Reader, originalFilename, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if ownerID == "" {
		return nil, ErrIDRequired
	}

	ok, err := s.quota.Fits(ctx, ownerID, size)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}
	if !ok {
		return nil, ErrQuotaExceeded
	}

	// Generate filename using UUID + extension
	ext := filepath.Ext(originalFilename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	if title == "" {
		title = originalFilename
	}
	now := s.clk.Now().UTC()
	doc := &model.Document{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       title,
		Filename:    genName,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
		Visibility:  model.VisibilityPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.record(ctx, &stored.ID, &ownerID, model.ActionUploaded, fmt.Sprintf("Uploaded %q (%d bytes)", originalFilename, stored.Size))
	return stored, nil
}

func (s *documentLifecycle) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentLifecycle) ListActive(ctx context.Context, ownerID, search, folderID string, limit, offset int) (*DocumentListResult, error) {
	active := false
	return s.list(ctx, repository.DocumentFilter{
		OwnerID:     ownerID,
		Trashed:     &active,
		TitleSearch: search,
		FolderID:    folderID,
	}, limit, offset)
}

func (s *documentLifecycle) ListTrash(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error) {
	trashed := true
	return s.list(ctx, repository.DocumentFilter{
		OwnerID: ownerID,
		Trashed: &trashed,
	}, limit, offset)
}

func (s *documentLifecycle) ListShared(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	active := false
	return s.list(ctx, repository.DocumentFilter{
		Trashed:    &active,
		Visibility: model.VisibilityPublic,
	}, limit, offset)
}

func (s *documentLifecycle) ListRecent(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	active := false
	since := s.clk.Now().UTC().Add(-recentWindow)
	return s.list(ctx, repository.DocumentFilter{
		Trashed:      &active,
		CreatedAfter: &since,
	}, limit, offset)
}

func (s *documentLifecycle) list(ctx context.Context, f repository.DocumentFilter, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.docs.List(ctx, f, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentLifecycle) Rename(ctx context.Context, id, title, userID string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	rows, err := s.docs.UpdateMeta(ctx, id, &title, nil, s.clk.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, s.missingOrWrongState(ctx, id)
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &id, &userID, model.ActionRenamed, fmt.Sprintf("Renamed to %q", title))
	return doc, nil
}

func (s *documentLifecycle) SoftDelete(ctx context.Context, id, userID string) error {
	if id == "" {
		return ErrIDRequired
	}
	rows, err := s.docs.MarkTrashed(ctx, id, s.clk.Now().UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, err := s.docs.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		// Already trashed: trash is a queue, not a toggle.
		return nil
	}
	s.record(ctx, &id, &userID, model.ActionTrashed, "Moved to trash")
	return nil
}

func (s *documentLifecycle) Restore(ctx context.Context, id, userID string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	rows, err := s.docs.ClearTrashed(ctx, id, s.clk.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, s.missingOrWrongState(ctx, id)
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &id, &userID, model.ActionRestored, "Restored from trash")
	return doc, nil
}

func (s *documentLifecycle) Purge(ctx context.Context, id, userID string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.purge(ctx, doc, &userID, model.ActionDeleted)
}

func (s *documentLifecycle) AutoPurge(ctx context.Context, doc *model.Document) error {
	return s.purge(ctx, doc, nil, model.ActionAutoDeleted)
}

// purge deletes blob and row under a single row lock, blob first: if the
// blob delete fails the transaction aborts and the row survives so the next
// sweep retries; the inverse order would leak untracked blobs. The lock
// serializes purge against restore, so the blob is only ever destroyed for
// a document that is trashed at commit time.
func (s *documentLifecycle) purge(ctx context.Context, doc *model.Document, userID *string, action string) error {
	if !doc.Trashed() {
		return ErrInvalidState
	}
	rows, err := s.docs.PurgeTrashed(ctx, doc.ID, func(locked *model.Document) error {
		if locked.StoragePath == "" {
			return nil
		}
		if err := s.store.Delete(ctx, locked.StoragePath); err != nil {
			return fmt.Errorf("delete blob: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		// Restored or already purged before the lock was taken.
		return ErrInvalidState
	}
	s.record(ctx, &doc.ID, userID, action, fmt.Sprintf("Permanently deleted %q", doc.Title))
	return nil
}

func (s *documentLifecycle) Share(ctx context.Context, id string, level model.ShareAccessLevel, userID string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if level != model.ShareViewOnly && level != model.ShareViewAndDownload {
		level = model.ShareViewOnly
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Trashed() {
		return nil, ErrInvalidState
	}
	// Download access is meaningless without a stored blob.
	if level == model.ShareViewAndDownload && doc.StoragePath == "" {
		return nil, ErrInvalidState
	}

	rows, err := s.docs.SetShared(ctx, id, level, s.clk.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, s.missingOrWrongState(ctx, id)
	}

	doc, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &id, &userID, model.ActionShared, fmt.Sprintf("Shared %q with access level %s", doc.Title, level))
	s.notifier.Publish("document.shared", map[string]any{
		"document_id":  doc.ID,
		"title":        doc.Title,
		"access_level": string(level),
	})
	return doc, nil
}

func (s *documentLifecycle) PresignDownload(ctx context.Context, doc *model.Document, userID string) (string, error) {
	if doc.StoragePath == "" {
		return "", ErrInvalidState
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	var uid *string
	if userID != "" {
		uid = &userID
	}
	s.record(ctx, &doc.ID, uid, model.ActionDownloaded, fmt.Sprintf("Downloaded %q", doc.Title))
	return u, nil
}

func (s *documentLifecycle) RecordView(ctx context.Context, doc *model.Document, userID, action string) {
	var uid *string
	if userID != "" {
		uid = &userID
	}
	if action == "" {
		action = model.ActionViewed
	}
	s.record(ctx, &doc.ID, uid, action, fmt.Sprintf("Viewed %q", doc.Title))
}

func (s *documentLifecycle) Activities(ctx context.Context, documentID string, limit, offset int) (*ActivityListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.activity.List(ctx, documentID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ActivityListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentLifecycle) Stats(ctx context.Context) (*DocumentStats, error) {
	st, err := s.docs.Stats(ctx, s.clk.Now().UTC().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	return &DocumentStats{
		Total:        st.Total,
		Recent:       st.Recent,
		Shared:       st.Shared,
		Trashed:      st.Trashed,
		StorageUsed:  st.StorageUsed,
		StorageLimit: s.quota.Limit(),
	}, nil
}

// missingOrWrongState disambiguates a zero-row conditional update.
func (s *documentLifecycle) missingOrWrongState(ctx context.Context, id string) error {
	exists, err := s.docs.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidState
}

// record appends an activity entry. The log is a side-effect sink: a failed
// insert is logged and swallowed so it cannot roll back a transition.
func (s *documentLifecycle) record(ctx context.Context, documentID, userID *string, action, detail string) {
	rec := &model.ActivityRecord{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		UserID:     userID,
		Action:     action,
		Detail:     detail,
		CreatedAt:  s.clk.Now().UTC(),
	}
	if err := s.activity.Record(ctx, rec); err != nil {
		log.Printf("activity record failed: action=%s err=%v", action, err)
	}
}
