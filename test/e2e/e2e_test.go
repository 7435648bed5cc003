//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loomworks/careerlens/internal/analyzer"
	"github.com/loomworks/careerlens/internal/api/handlers"
	"github.com/loomworks/careerlens/internal/domain"
	"github.com/loomworks/careerlens/internal/extract"
	"github.com/loomworks/careerlens/internal/openai"
	"github.com/loomworks/careerlens/internal/repository"
	"github.com/loomworks/careerlens/internal/server"
	"github.com/loomworks/careerlens/internal/service"
	"github.com/loomworks/careerlens/internal/storage"
	"github.com/loomworks/careerlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompletionClient answers summarize prompts with a canned summary
// and the reduce prompt with a canned JSON result.
type scriptedCompletionClient struct{}

func (c *scriptedCompletionClient) Complete(ctx context.Context, prompt string, opts openai.Options) (string, error) {
	if strings.Contains(prompt, "ONLY a JSON object") {
		result := domain.AnalysisResult{
			domain.CategoryExperience:      {Assessment: "five years backend", Suggestion: "quantify impact"},
			domain.CategorySkills:          {Assessment: "solid Go and SQL", Suggestion: "group by depth"},
			domain.CategoryEducation:       {Assessment: "relevant degree", Suggestion: "move below experience"},
			domain.CategoryReadability:     {Assessment: "clear layout", Suggestion: "shorter bullets"},
			domain.CategoryCompetitiveness: {Assessment: "strong for mid-level", Suggestion: "add open source work"},
		}
		data, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "segment summary", nil
}

type testEnv struct {
	ServerURL string
	Pool      *pgxpool.Pool
	S3Client  *storage.S3Client
	cleanup   []func()
}

func (e *testEnv) Close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
}

func setupEnv(t *testing.T) *testEnv {
	ctx := context.Background()
	env := &testEnv{}

	pgC := testutil.NewPostgresContainer(ctx, t)
	env.cleanup = append(env.cleanup, func() { _ = pgC.Terminate(ctx) })

	s3C := testutil.NewRustFSContainer(ctx, t)
	env.cleanup = append(env.cleanup, func() { _ = s3C.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	env.Pool = pool
	env.cleanup = append(env.cleanup, pool.Close)

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "e2e-analyses",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, s3Client.EnsureBucket(ctx))
	env.S3Client = s3Client

	store := service.NewStore(s3Client, repository.NewAnalysisRepository(pool))
	resumeAnalyzer := analyzer.NewAnalyzer(&scriptedCompletionClient{})
	validator := service.NewStaticTokenValidator(map[string]string{"e2e-token": "e2e-user"})

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   validator,
		AnalysisHandler: handlers.NewAnalysisHandler(extract.NewExtractor(), resumeAnalyzer, store),
	})

	srv := httptest.NewServer(router)
	env.ServerURL = srv.URL
	env.cleanup = append(env.cleanup, srv.Close)

	return env
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, payload
}

func TestE2E_FullAnalysisLifecycle(t *testing.T) {
	env := setupEnv(t)
	defer env.Close()

	// Upload a plain-text resume.
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	require.NoError(t, writer.WriteField("target_role", "backend engineer"))
	part, err := writer.CreateFormFile("file", "resume.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Jane Doe\nBackend engineer.\nFive years of Go and SQL."))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, env.ServerURL+"/analyses", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer e2e-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	created, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(created))

	var createResp struct {
		Data struct {
			Record struct {
				AnalysisID   string `json:"analysis_id"`
				AnalyzedDate string `json:"analyzed_date"`
			} `json:"record"`
			Result domain.AnalysisResult `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created, &createResp))
	analysisID := createResp.Data.Record.AnalysisID
	require.NotEmpty(t, analysisID)
	assert.Len(t, createResp.Data.Result, 5)

	// The original blob landed under the resume tree.
	ctx := context.Background()
	objects, err := env.S3Client.ListObjects(ctx, "resumes/e2e-user/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Contains(t, objects[0].Key, analysisID)

	// List shows the new record.
	resp, payload := doJSON(t, http.MethodGet, env.ServerURL+"/analyses", "e2e-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listResp struct {
		Data struct {
			Items []struct {
				AnalysisID string `json:"analysis_id"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &listResp))
	require.Len(t, listResp.Data.Items, 1)
	assert.Equal(t, analysisID, listResp.Data.Items[0].AnalysisID)

	// Fetch returns the stored result.
	resp, payload = doJSON(t, http.MethodGet, fmt.Sprintf("%s/analyses/%s", env.ServerURL, analysisID), "e2e-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(payload), "five years backend")

	// Delete removes record and blobs; a second delete is a 404.
	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/analyses/%s", env.ServerURL, analysisID), "e2e-token", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	objects, err = env.S3Client.ListObjects(ctx, "resumes/e2e-user/")
	require.NoError(t, err)
	assert.Empty(t, objects)

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/analyses/%s", env.ServerURL, analysisID), "e2e-token", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestE2E_DirectTextAndAuth(t *testing.T) {
	env := setupEnv(t)
	defer env.Close()

	// No token: rejected.
	resp, _ := doJSON(t, http.MethodGet, env.ServerURL+"/analyses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Raw text without a file: sentinels instead of an original blob.
	resp, payload := doJSON(t, http.MethodPost, env.ServerURL+"/analyses", "e2e-token", map[string]string{
		"text":        "Jane Doe, backend engineer, five years of Go.",
		"target_role": "backend engineer",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))

	var createResp struct {
		Data struct {
			Record struct {
				OriginalFileName string `json:"original_file_name"`
			} `json:"record"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &createResp))
	assert.Equal(t, domain.DirectInputName, createResp.Data.Record.OriginalFileName)

	objects, err := env.S3Client.ListObjects(context.Background(), "resumes/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}
