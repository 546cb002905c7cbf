package service

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/model"
	"github.com/lshigami/Margay/internal/repository"
	"github.com/rs/zerolog/log"
)

var ErrDocumentForbidden = fmt.Errorf("document does not belong to the requesting user")

// DocumentService owns the upload flow: text extraction, original-file
// storage, and the document records generation reads from.
type DocumentService interface {
	Upload(ctx context.Context, userID uint, filename, title string, data []byte) (*dto.DocumentResponse, error)
	List(userID uint) ([]dto.DocumentResponse, error)
	Get(userID, documentID uint) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, userID, documentID uint) error
}

type documentService struct {
	docRepo   repository.DocumentRepository
	storage   StorageProvider
	extractor TextExtractor
}

func NewDocumentService(docRepo repository.DocumentRepository, storage StorageProvider, extractor TextExtractor) DocumentService {
	return &documentService{docRepo: docRepo, storage: storage, extractor: extractor}
}

func (s *documentService) Upload(ctx context.Context, userID uint, filename, title string, data []byte) (*dto.DocumentResponse, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no file provided")
	}
	if title == "" {
		title = filename
	}

	content, err := s.extractor.Extract(filename, data)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Upload: content extraction failed")
		return nil, fmt.Errorf("failed to extract content from file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("documents/%s%s", uuid.NewString(), ext)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Upload: failed to store original file")
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc := model.Document{
		UserID:     userID,
		Title:      title,
		FileType:   FileTypeFor(filename),
		StorageKey: key,
		Status:     model.DocumentStatusProcessed,
		Content:    content,
	}
	if err := s.docRepo.Create(&doc); err != nil {
		log.Error().Err(err).Msg("Upload: failed to create document record")
		return nil, fmt.Errorf("database error creating document: %w", err)
	}

	log.Info().Uint("documentID", doc.ID).Str("fileType", doc.FileType).Int("contentLen", len(content)).Msg("Document uploaded and processed")

	var resp dto.DocumentResponse
	if err := copier.Copy(&resp, &doc); err != nil {
		return nil, fmt.Errorf("error preparing document response: %w", err)
	}
	return &resp, nil
}

func (s *documentService) List(userID uint) ([]dto.DocumentResponse, error) {
	docs, err := s.docRepo.FindAllByUser(userID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("List: failed to fetch documents")
		return nil, fmt.Errorf("error fetching documents: %w", err)
	}

	resp := make([]dto.DocumentResponse, 0, len(docs))
	for i := range docs {
		var d dto.DocumentResponse
		if err := copier.Copy(&d, &docs[i]); err != nil {
			continue
		}
		resp = append(resp, d)
	}
	return resp, nil
}

func (s *documentService) Get(userID, documentID uint) (*dto.DocumentResponse, error) {
	doc, err := s.findOwned(userID, documentID)
	if err != nil {
		return nil, err
	}

	var resp dto.DocumentResponse
	if err := copier.Copy(&resp, doc); err != nil {
		return nil, fmt.Errorf("error preparing document response: %w", err)
	}
	return &resp, nil
}

func (s *documentService) Delete(ctx context.Context, userID, documentID uint) error {
	doc, err := s.findOwned(userID, documentID)
	if err != nil {
		return err
	}

	if err := s.docRepo.Delete(doc.ID); err != nil {
		log.Error().Err(err).Uint("documentID", doc.ID).Msg("Delete: failed to delete document record")
		return fmt.Errorf("database error deleting document: %w", err)
	}

	// Best effort: a dangling stored object is preferable to a failed delete.
	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", doc.StorageKey).Msg("Delete: failed to remove stored file")
	}
	return nil
}

func (s *documentService) findOwned(userID, documentID uint) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(documentID)
	if err != nil {
		return nil, fmt.Errorf("document not found with ID %d: %w", documentID, err)
	}
	if doc.UserID != userID {
		return nil, ErrDocumentForbidden
	}
	return doc, nil
}
