// Package service coordinates the two persistence stores: blob storage for
// document and result content, and the metadata repository for the sorted
// per-owner index. Consistency between the two is best effort; blob writes
// always happen before the metadata write, so a failure can leave orphaned
// blobs but never a dangling record.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/loomworks/careerlens/internal/domain"
	"github.com/loomworks/careerlens/internal/storage"
)

// Blob key layout. Both trees are keyed by owner then analysis id, so the
// orphan sweeper can recover ownership from a key alone.
const (
	ResumePrefix = "resumes"
	ResultPrefix = "analysis-results"

	resultObjectName = "result.json"
	resultMediaType  = "application/json"
)

// BlobStore is the subset of the storage client the coordinator needs.
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// MetadataRepository is the sorted metadata index over analysis records.
type MetadataRepository interface {
	Put(ctx context.Context, rec *domain.AnalysisRecord) error
	QueryByOwner(ctx context.Context, ownerID string) ([]*domain.AnalysisRecord, error)
	QueryByOwnerBefore(ctx context.Context, ownerID string, before int64, limit int) ([]*domain.AnalysisRecord, error)
	Delete(ctx context.Context, ownerID string, analyzedAt int64) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)

// Store persists analysis outcomes across blob storage and the metadata index.
type Store struct {
	blobs   BlobStore
	records MetadataRepository
	uuidGen UUIDGenerator
	now     func() time.Time
}

func NewStore(blobs BlobStore, records MetadataRepository) *Store {
	return &Store{
		blobs:   blobs,
		records: records,
		uuidGen: &DefaultUUIDGenerator{},
		now:     time.Now,
	}
}

// NewStoreWithClock injects the id generator and clock, for tests.
func NewStoreWithClock(blobs BlobStore, records MetadataRepository, uuidGen UUIDGenerator, now func() time.Time) *Store {
	return &Store{
		blobs:   blobs,
		records: records,
		uuidGen: uuidGen,
		now:     now,
	}
}

// SaveInput describes one analysis outcome to persist. Original is nil when
// the caller submitted raw text rather than a file.
type SaveInput struct {
	OwnerID    string
	TargetRole string
	Original   *domain.Document
	Result     domain.AnalysisResult
}

// Save persists an analysis outcome and returns its metadata record.
//
// Write order is fixed: original blob (if any), then result blob, then the
// metadata record. A failure at any stage aborts the remaining stages, so an
// interrupted save can orphan blobs but never produces a record whose result
// blob was not written first.
func (s *Store) Save(ctx context.Context, input SaveInput) (*domain.AnalysisRecord, error) {
	if input.OwnerID == "" {
		return nil, NewDomainValidationError("owner id is required")
	}
	if input.Result == nil {
		return nil, NewDomainValidationError("analysis result is required")
	}

	analysisID := s.uuidGen.NewString()
	analyzedAt := s.now().Unix()

	rec := &domain.AnalysisRecord{
		OwnerID:          input.OwnerID,
		AnalysisID:       analysisID,
		AnalyzedAt:       analyzedAt,
		TargetRole:       input.TargetRole,
		OriginalFileName: domain.DirectInputName,
		ResumePath:       domain.NoOriginalBlob,
		ResultPath:       resultKey(input.OwnerID, analysisID),
	}

	if input.Original != nil {
		rec.OriginalFileName = input.Original.Name
		rec.ResumePath = resumeKey(input.OwnerID, analysisID, input.Original.Name)
		if err := s.blobs.PutObject(ctx, rec.ResumePath, input.Original.Data, input.Original.MediaType); err != nil {
			return nil, &domain.SaveError{Stage: domain.SaveStageOriginalBlob, Err: err}
		}
	}

	resultData, err := domain.EncodeResult(input.Result)
	if err != nil {
		return nil, &domain.SaveError{Stage: domain.SaveStageResultBlob, Err: err}
	}
	if err := s.blobs.PutObject(ctx, rec.ResultPath, resultData, resultMediaType); err != nil {
		return nil, &domain.SaveError{Stage: domain.SaveStageResultBlob, Err: err}
	}

	if err := domain.ValidateRecord(rec); err != nil {
		return nil, &domain.SaveError{Stage: domain.SaveStageMetadata, Err: err}
	}
	if err := s.records.Put(ctx, rec); err != nil {
		return nil, &domain.SaveError{Stage: domain.SaveStageMetadata, Err: err}
	}

	return rec, nil
}

// ListByOwner returns all of an owner's records, newest first. An owner with
// no history gets an empty slice.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*domain.AnalysisRecord, error) {
	return s.records.QueryByOwner(ctx, ownerID)
}

// ListByOwnerPage returns up to limit records strictly older than the given
// timestamp, newest first. A before of zero starts from the top.
func (s *Store) ListByOwnerPage(ctx context.Context, ownerID string, before int64, limit int) ([]*domain.AnalysisRecord, error) {
	return s.records.QueryByOwnerBefore(ctx, ownerID, before, limit)
}

// FetchResult retrieves and decodes the stored result for one analysis.
// Returns ErrRecordNotFound when the owner has no record with the given id,
// and ErrBlobMissing when the record exists but its result blob does not.
func (s *Store) FetchResult(ctx context.Context, ownerID, analysisID string) (domain.AnalysisResult, *domain.AnalysisRecord, error) {
	rec, err := s.findRecord(ctx, ownerID, analysisID)
	if err != nil {
		return nil, nil, err
	}

	if rec.ResultPath == "" || rec.ResultPath == domain.NoOriginalBlob {
		return nil, rec, domain.ErrResultNotFound
	}

	data, err := s.blobs.GetObject(ctx, rec.ResultPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, rec, domain.ErrBlobMissing
		}
		return nil, rec, fmt.Errorf("failed to fetch result blob: %w", err)
	}

	result, err := domain.DecodeResult(data)
	if err != nil {
		return nil, rec, err
	}

	return result, rec, nil
}

// DeleteByAnalysisID removes one analysis: both blobs and the metadata record.
//
// Blob deletes are best effort; a failed blob delete is logged and the
// deletion continues, leaving an orphan for the sweeper. The metadata delete
// is authoritative: the operation succeeds or fails on it alone.
func (s *Store) DeleteByAnalysisID(ctx context.Context, ownerID, analysisID string) error {
	rec, err := s.findRecord(ctx, ownerID, analysisID)
	if err != nil {
		return err
	}

	if rec.HasOriginal() {
		if err := s.blobs.DeleteObject(ctx, rec.ResumePath); err != nil {
			log.Printf("delete: failed to remove original blob %s: %v", rec.ResumePath, err)
		}
	}
	if rec.ResultPath != "" && rec.ResultPath != domain.NoOriginalBlob {
		if err := s.blobs.DeleteObject(ctx, rec.ResultPath); err != nil {
			log.Printf("delete: failed to remove result blob %s: %v", rec.ResultPath, err)
		}
	}

	return s.records.Delete(ctx, rec.OwnerID, rec.AnalyzedAt)
}

// findRecord resolves an analysis id within an owner's partition. The index
// is keyed by timestamp, so the lookup scans the owner's records and filters.
func (s *Store) findRecord(ctx context.Context, ownerID, analysisID string) (*domain.AnalysisRecord, error) {
	if ownerID == "" || analysisID == "" {
		return nil, NewDomainValidationError("owner id and analysis id are required")
	}

	records, err := s.records.QueryByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis records: %w", err)
	}

	var match *domain.AnalysisRecord
	for _, rec := range records {
		if rec.AnalysisID != analysisID {
			continue
		}
		if match != nil {
			return nil, domain.ErrAmbiguousRecord
		}
		match = rec
	}
	if match == nil {
		return nil, domain.ErrRecordNotFound
	}

	return match, nil
}

// NewDomainValidationError builds a VALIDATION_ERROR with the given message.
func NewDomainValidationError(message string) *domain.DomainError {
	return domain.NewDomainError(domain.ErrCodeValidation, message)
}

func resumeKey(ownerID, analysisID, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", ResumePrefix, ownerID, analysisID, filename)
}

func resultKey(ownerID, analysisID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", ResultPrefix, ownerID, analysisID, resultObjectName)
}
