package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/loomworks/careerlens/internal/api"
	"github.com/loomworks/careerlens/internal/api/middleware"
	"github.com/loomworks/careerlens/internal/domain"
	"github.com/loomworks/careerlens/internal/extract"
	"github.com/loomworks/careerlens/internal/pagination"
	"github.com/loomworks/careerlens/internal/service"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// Memory cap for multipart parsing; larger parts spill to disk.
	multipartMemoryLimit = 10 << 20
)

type DocumentExtractor interface {
	Extract(data []byte, mediaType string) (string, error)
}

type ResumeAnalyzer interface {
	Analyze(ctx context.Context, text, targetRole string) (domain.AnalysisResult, error)
}

type AnalysisStore interface {
	Save(ctx context.Context, input service.SaveInput) (*domain.AnalysisRecord, error)
	ListByOwnerPage(ctx context.Context, ownerID string, before int64, limit int) ([]*domain.AnalysisRecord, error)
	FetchResult(ctx context.Context, ownerID, analysisID string) (domain.AnalysisResult, *domain.AnalysisRecord, error)
	DeleteByAnalysisID(ctx context.Context, ownerID, analysisID string) error
}

type AnalysisHandler struct {
	extractor DocumentExtractor
	analyzer  ResumeAnalyzer
	store     AnalysisStore
}

func NewAnalysisHandler(extractor DocumentExtractor, analyzer ResumeAnalyzer, store AnalysisStore) *AnalysisHandler {
	return &AnalysisHandler{
		extractor: extractor,
		analyzer:  analyzer,
		store:     store,
	}
}

type AnalyzeTextRequest struct {
	Text       string `json:"text"`
	TargetRole string `json:"target_role"`
}

type RecordResponse struct {
	AnalysisID       string `json:"analysis_id"`
	AnalyzedAt       int64  `json:"analyzed_at"`
	AnalyzedDate     string `json:"analyzed_date"`
	OriginalFileName string `json:"original_file_name"`
	TargetRole       string `json:"target_role,omitempty"`
}

type AnalysisResponse struct {
	Record *RecordResponse       `json:"record"`
	Result domain.AnalysisResult `json:"result"`
}

func recordToResponse(rec *domain.AnalysisRecord) *RecordResponse {
	return &RecordResponse{
		AnalysisID:       rec.AnalysisID,
		AnalyzedAt:       rec.AnalyzedAt,
		AnalyzedDate:     rec.AnalyzedDate(),
		OriginalFileName: rec.OriginalFileName,
		TargetRole:       rec.TargetRole,
	}
}

// Create runs the full pipeline: extract, analyze, persist. It accepts
// either a multipart upload ("file" part plus optional "target_role") or a
// JSON body with raw text.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		text       string
		targetRole string
		original   *domain.Document
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		doc, role, err := h.parseMultipart(r)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		targetRole = role

		extracted, err := h.extractor.Extract(doc.Data, doc.MediaType)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		text = extracted
		original = doc
	} else {
		var req AnalyzeTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		text = req.Text
		targetRole = req.TargetRole
	}

	result, err := h.analyzer.Analyze(r.Context(), text, targetRole)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	rec, err := h.store.Save(r.Context(), service.SaveInput{
		OwnerID:    ownerID,
		TargetRole: targetRole,
		Original:   original,
		Result:     result,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, AnalysisResponse{
		Record: recordToResponse(rec),
		Result: result,
	})
}

func (h *AnalysisHandler) parseMultipart(r *http.Request) (*domain.Document, string, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid multipart body", err)
	}

	targetRole := r.FormValue("target_role")

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", domain.NewDomainError(domain.ErrCodeValidation, "file part is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to read uploaded file", err)
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = guessMediaType(header.Filename)
	}

	return &domain.Document{
		Name:      header.Filename,
		MediaType: mediaType,
		Data:      data,
	}, targetRole, nil
}

// guessMediaType falls back to the file extension when the part carries no
// declared content type.
func guessMediaType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return extract.MediaTypePlainText
	case ".pdf":
		return extract.MediaTypePDF
	case ".docx":
		return extract.MediaTypeDocx
	default:
		return mime.TypeByExtension(filepath.Ext(filename))
	}
}

// List returns the owner's analysis history, newest first, with cursor
// pagination.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultPageLimit
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxPageLimit {
			parsed = maxPageLimit
		}
		limit = parsed
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}
	var before int64
	if cursor != nil {
		before = cursor.AnalyzedAt
	}

	records, err := h.store.ListByOwnerPage(r.Context(), ownerID, before, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*RecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, recordToResponse(rec))
	}

	next := pagination.CreateNextCursor(records, limit,
		func(rec *domain.AnalysisRecord) string { return rec.AnalysisID },
		func(rec *domain.AnalysisRecord) int64 { return rec.AnalyzedAt },
	)

	api.Success(w, http.StatusOK, pagination.PageResult[*RecordResponse]{
		Items:   items,
		Cursor:  next,
		HasMore: next != "",
	})
}

// Get returns one analysis with its stored result.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	analysisID := chi.URLParam(r, "id")
	if analysisID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	result, rec, err := h.store.FetchResult(r.Context(), ownerID, analysisID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnalysisResponse{
		Record: recordToResponse(rec),
		Result: result,
	})
}

// Delete removes one analysis, blobs included.
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	analysisID := chi.URLParam(r, "id")
	if analysisID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.store.DeleteByAnalysisID(r.Context(), ownerID, analysisID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
