//go:build integration

package service

import (
	"context"
	"testing"

	"github.com/loomworks/careerlens/internal/domain"
	"github.com/loomworks/careerlens/internal/repository"
	"github.com/loomworks/careerlens/internal/storage"
	"github.com/loomworks/careerlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIntegrationStore(t *testing.T) (*Store, *storage.S3Client, func()) {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-analyses",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, s3Client.EnsureBucket(ctx))

	store := NewStore(s3Client, repository.NewAnalysisRepository(pool))

	cleanup := func() {
		pool.Close()
		_ = s3C.Terminate(ctx)
		_ = pgC.Terminate(ctx)
	}
	return store, s3Client, cleanup
}

func TestStoreIntegration_SaveFetchDelete(t *testing.T) {
	ctx := context.Background()
	store, s3Client, cleanup := setupIntegrationStore(t)
	defer cleanup()

	result := domain.AnalysisResult{
		domain.CategoryExperience: {Assessment: "five years of backend work", Suggestion: "lead with impact"},
		domain.CategorySkills:     {Assessment: "broad toolchain", Suggestion: "cut the long tail"},
	}
	doc := &domain.Document{
		Name:      "resume.txt",
		MediaType: "text/plain",
		Data:      []byte("Jane Doe\nBackend engineer, five years."),
	}

	rec, err := store.Save(ctx, SaveInput{
		OwnerID:    "user-1",
		TargetRole: "backend engineer",
		Original:   doc,
		Result:     result,
	})
	require.NoError(t, err)
	require.True(t, rec.HasOriginal())

	// Both blobs landed where the record points.
	originalData, err := s3Client.GetObject(ctx, rec.ResumePath)
	require.NoError(t, err)
	assert.Equal(t, doc.Data, originalData)

	fetched, fetchedRec, err := store.FetchResult(ctx, "user-1", rec.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, result, fetched)
	assert.Equal(t, rec.AnalysisID, fetchedRec.AnalysisID)

	list, err := store.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.DeleteByAnalysisID(ctx, "user-1", rec.AnalysisID))

	_, err = s3Client.GetObject(ctx, rec.ResultPath)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	err = store.DeleteByAnalysisID(ctx, "user-1", rec.AnalysisID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestStoreIntegration_DirectTextSentinels(t *testing.T) {
	ctx := context.Background()
	store, s3Client, cleanup := setupIntegrationStore(t)
	defer cleanup()

	result := domain.AnalysisResult{
		domain.CategoryReadability: {Assessment: "clear", Suggestion: "shorter bullets"},
	}

	rec, err := store.Save(ctx, SaveInput{OwnerID: "user-2", Result: result})
	require.NoError(t, err)
	assert.Equal(t, domain.NoOriginalBlob, rec.ResumePath)
	assert.Equal(t, domain.DirectInputName, rec.OriginalFileName)

	// Nothing was written under the resume tree.
	objects, err := s3Client.ListObjects(ctx, ResumePrefix+"/")
	require.NoError(t, err)
	assert.Empty(t, objects)

	fetched, _, err := store.FetchResult(ctx, "user-2", rec.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, result, fetched)
}
