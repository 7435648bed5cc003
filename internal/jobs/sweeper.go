package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/loomworks/careerlens/internal/domain"
	"github.com/loomworks/careerlens/internal/service"
	"github.com/loomworks/careerlens/internal/storage"
)

// DefaultGracePeriod shields in-flight saves: a blob younger than this is
// never treated as an orphan, because its metadata record may not have been
// written yet.
const DefaultGracePeriod = time.Hour

// BlobLister lists and deletes objects in blob storage.
type BlobLister interface {
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
}

// RecordReader reads the metadata index for reconciliation.
type RecordReader interface {
	QueryByOwner(ctx context.Context, ownerID string) ([]*domain.AnalysisRecord, error)
}

// Sweeper deletes orphaned blobs: objects under the resume and result
// prefixes whose (owner, analysis id) pair has no metadata record. Orphans
// appear when a save fails partway or a delete's blob removal fails.
type Sweeper struct {
	blobs       BlobLister
	records     RecordReader
	gracePeriod time.Duration
	now         func() time.Time
}

func NewSweeper(blobs BlobLister, records RecordReader) *Sweeper {
	return &Sweeper{
		blobs:       blobs,
		records:     records,
		gracePeriod: DefaultGracePeriod,
		now:         time.Now,
	}
}

// NewSweeperWithClock injects the grace period and clock, for tests.
func NewSweeperWithClock(blobs BlobLister, records RecordReader, gracePeriod time.Duration, now func() time.Time) *Sweeper {
	return &Sweeper{
		blobs:       blobs,
		records:     records,
		gracePeriod: gracePeriod,
		now:         now,
	}
}

func (s *Sweeper) Name() string { return "orphan-sweeper" }

// Run sweeps both blob trees once. Individual delete failures are logged and
// skipped; the orphan stays for the next sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	swept := 0
	for _, prefix := range []string{service.ResumePrefix, service.ResultPrefix} {
		n, err := s.sweepPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		swept += n
	}
	if swept > 0 {
		log.Printf("sweep: removed %d orphaned blobs", swept)
	}
	return nil
}

func (s *Sweeper) sweepPrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := s.blobs.ListObjects(ctx, prefix+"/")
	if err != nil {
		return 0, fmt.Errorf("failed to list %s blobs: %w", prefix, err)
	}

	cutoff := s.now().Add(-s.gracePeriod)

	// Cache each owner's live analysis ids; one owner's blobs cluster
	// together in key order, so this usually queries each owner once.
	known := make(map[string]map[string]bool)

	swept := 0
	for _, obj := range objects {
		ownerID, analysisID, ok := parseBlobKey(obj.Key)
		if !ok {
			log.Printf("sweep: skipping unrecognized key %s", obj.Key)
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}

		ids, ok := known[ownerID]
		if !ok {
			records, err := s.records.QueryByOwner(ctx, ownerID)
			if err != nil {
				return swept, fmt.Errorf("failed to query records for owner %s: %w", ownerID, err)
			}
			ids = make(map[string]bool, len(records))
			for _, rec := range records {
				ids[rec.AnalysisID] = true
			}
			known[ownerID] = ids
		}
		if ids[analysisID] {
			continue
		}

		if err := s.blobs.DeleteObject(ctx, obj.Key); err != nil {
			log.Printf("sweep: failed to delete orphan %s: %v", obj.Key, err)
			continue
		}
		swept++
	}

	return swept, nil
}

// parseBlobKey extracts (owner, analysis id) from a blob key of the form
// prefix/owner/analysisID/filename.
func parseBlobKey(key string) (ownerID, analysisID string, ok bool) {
	parts := strings.SplitN(key, "/", 4)
	if len(parts) != 4 || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
