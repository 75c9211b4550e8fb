package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"docuchat-backend/internal/integrations"
	"docuchat-backend/internal/models"
	"docuchat-backend/internal/queue"
	"docuchat-backend/internal/rag"
	"docuchat-backend/internal/storage"
	"docuchat-backend/internal/store"

	"github.com/google/uuid"
)

const (
	maxSearchResults = 20
	notionFileType   = "notion"
)

var (
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	ErrNoFile       = errors.New("document has no stored file")
)

// DocumentService handles uploads, imports, retrieval and search of a user's
// documents.
type DocumentService struct {
	docs      store.DocumentStore
	blobs     storage.BlobStore
	tasks     queue.Client
	retriever *rag.Retriever
	notion    *integrations.NotionImporter

	maxFileSize int64
	allowed     map[string]bool
}

type DocumentServiceConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

func NewDocumentService(docs store.DocumentStore, blobs storage.BlobStore, tasks queue.Client, retriever *rag.Retriever, notion *integrations.NotionImporter, cfg DocumentServiceConfig) *DocumentService {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")] = true
	}
	return &DocumentService{
		docs:        docs,
		blobs:       blobs,
		tasks:       tasks,
		retriever:   retriever,
		notion:      notion,
		maxFileSize: cfg.MaxFileSize,
		allowed:     allowed,
	}
}

// Upload stores the file, extracts its text and schedules indexing.
func (s *DocumentService) Upload(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*models.Document, error) {
	title := filepath.Base(strings.TrimSpace(filename))
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(title)), ".")
	if title == "" || title == "." || ext == "" {
		return nil, fmt.Errorf("%w: a file name with an extension is required", ErrValidation)
	}
	if !s.allowed[ext] {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrValidation, ext)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, s.maxFileSize)
	}

	content, err := rag.ExtractText(ext, data)
	if err != nil {
		if errors.Is(err, rag.ErrUnsupportedType) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: could not read file: %v", ErrValidation, err)
	}

	doc := &models.Document{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    title,
		Content:  content,
		FileType: ext,
		FileSize: int64(len(data)),
	}
	doc.StorageKey = fmt.Sprintf("%s/%s.%s", userID, doc.ID, ext)

	if err := s.blobs.Put(ctx, doc.StorageKey, data); err != nil {
		log.Printf("ERROR [DocumentService] Upload: Failed storing file for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(ctx, doc.StorageKey); delErr != nil {
			log.Printf("WARN [DocumentService] Upload: Orphaned blob %s: %v", doc.StorageKey, delErr)
		}
		return nil, err
	}
	log.Printf("[DocumentService] Stored document %s (%s, %d bytes) for user %s", doc.ID, ext, doc.FileSize, userID)

	return s.scheduleIndexing(ctx, doc)
}

// ImportNotion copies a Notion page into a new document.
func (s *DocumentService) ImportNotion(ctx context.Context, userID uuid.UUID, pageID string) (*models.Document, error) {
	if s.notion == nil {
		return nil, integrations.ErrNotionNotConfigured
	}
	if strings.TrimSpace(pageID) == "" {
		return nil, fmt.Errorf("%w: page_id is required", ErrValidation)
	}

	page, err := s.notion.FetchPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    page.Title,
		Content:  page.Text,
		FileType: notionFileType,
		FileSize: int64(len(page.Text)),
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	log.Printf("[DocumentService] Imported Notion page %s as document %s for user %s", page.ID, doc.ID, userID)

	return s.scheduleIndexing(ctx, doc)
}

// scheduleIndexing enqueues the index task. A failure leaves the document
// unprocessed rather than failing the request.
func (s *DocumentService) scheduleIndexing(ctx context.Context, doc *models.Document) (*models.Document, error) {
	task, err := rag.NewIndexTask(doc.ID, doc.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.tasks.Enqueue(ctx, task, queue.EnqueueOption{MaxRetry: 3}); err != nil {
		log.Printf("WARN [DocumentService] Indexing of document %s did not complete: %v", doc.ID, err)
		return doc, nil
	}

	// The inline queue has already indexed it.
	fresh, err := s.docs.GetDocument(ctx, doc.ID, doc.UserID)
	if err != nil {
		return doc, nil
	}
	return fresh, nil
}

func (s *DocumentService) List(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	return s.docs.ListDocuments(ctx, userID)
}

func (s *DocumentService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Document, error) {
	return s.docs.GetDocument(ctx, id, userID)
}

// Download returns the document and its original bytes.
func (s *DocumentService) Download(ctx context.Context, userID, id uuid.UUID) (*models.Document, []byte, error) {
	doc, err := s.docs.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if doc.StorageKey == "" {
		return nil, nil, ErrNoFile
	}
	data, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			log.Printf("WARN [DocumentService] Download: Blob %s for document %s is missing", doc.StorageKey, id)
			return nil, nil, ErrNoFile
		}
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return doc, data, nil
}

// Delete removes the document, its chunks and its stored file.
func (s *DocumentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	doc, err := s.docs.GetDocument(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.docs.DeleteDocument(ctx, id, userID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
			log.Printf("WARN [DocumentService] Delete: Failed removing blob %s: %v", doc.StorageKey, err)
		}
	}
	log.Printf("[DocumentService] Deleted document %s for user %s", id, userID)
	return nil
}

// Search ranks the user's chunks against query.
func (s *DocumentService) Search(ctx context.Context, userID uuid.UUID, query string, topK int) ([]models.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrValidation)
	}
	if topK > maxSearchResults {
		topK = maxSearchResults
	}
	return s.retriever.Retrieve(ctx, userID, query, topK)
}
