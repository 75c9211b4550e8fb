package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/services"
	"docuchat-backend/pkg/httputil"
)

const (
	documentNotFound = "Document not found"
	// multipart framing allowed on top of the file itself
	uploadOverhead = 1 << 20
)

// DocumentHandlers handles uploads, imports and search.
type DocumentHandlers struct {
	documents   *services.DocumentService
	maxFileSize int64
}

func NewDocumentHandlers(documents *services.DocumentService, maxFileSize int64) *DocumentHandlers {
	return &DocumentHandlers{documents: documents, maxFileSize: maxFileSize}
}

// HandleUpload handles POST /api/documents with a multipart "file" field.
func (h *DocumentHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+uploadOverhead)
	if err := r.ParseMultipartForm(h.maxFileSize + uploadOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, services.ErrFileTooLarge.Error())
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	doc, err := h.documents.Upload(r.Context(), user.ID, header.Filename, data)
	if err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.NewDocumentResponse(doc))
}

// HandleImportNotion handles POST /api/documents/import/notion.
func (h *DocumentHandlers) HandleImportNotion(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.NotionImportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.documents.ImportNotion(r.Context(), user.ID, req.PageID)
	if err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.NewDocumentResponse(doc))
}

// HandleList handles GET /api/documents.
func (h *DocumentHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	docs, err := h.documents.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}
	resp := make([]models.DocumentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, models.NewDocumentResponse(&docs[i]))
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /api/documents/{id}.
func (h *DocumentHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", documentNotFound)
	if !ok {
		return
	}
	doc, err := h.documents.Get(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.NewDocumentResponse(doc))
}

// HandleDownload handles GET /api/documents/{id}/file.
func (h *DocumentHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", documentNotFound)
	if !ok {
		return
	}
	doc, data, err := h.documents.Download(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(doc.Title))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Title}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleDelete handles DELETE /api/documents/{id}.
func (h *DocumentHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", documentNotFound)
	if !ok {
		return
	}
	if err := h.documents.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.StatusResponse{Message: "Document deleted successfully"})
}

// HandleSearch handles POST /api/search.
func (h *DocumentHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.SearchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hits, err := h.documents.Search(r.Context(), user.ID, req.Query, req.TopK)
	if err != nil {
		respondServiceError(w, r, documentNotFound, err)
		return
	}
	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.SearchResult{
			ChunkID:       hit.ChunkID,
			DocumentID:    hit.DocumentID,
			DocumentTitle: hit.DocumentTitle,
			ChunkIndex:    hit.ChunkIndex,
			Content:       hit.Content,
			Score:         hit.Score,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, models.SearchResponse{Query: req.Query, Results: results})
}
