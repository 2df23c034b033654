package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var validate = validator.New()

type uploadRequest struct {
	Filename string `validate:"required,max=255"`
	Author   string `validate:"required,max=64"`
}

// DocumentService uploads, downloads and searches documents.
// Storing is authoritative, indexing is best effort: a document that could
// not be indexed is still downloadable by id.
type DocumentService struct {
	log         *slog.Logger
	store       contract.DocumentStore
	index       contract.DocumentIndex
	maxSize     int
	searchLimit int
}

func NewDocumentService(log *slog.Logger, store contract.DocumentStore, index contract.DocumentIndex,
	maxSize int, searchLimit int) *DocumentService {
	return &DocumentService{
		log:         log,
		store:       store,
		index:       index,
		maxSize:     maxSize,
		searchLimit: searchLimit,
	}
}

// Upload stores the content and returns the new document id.
// metadataJSON must be a JSON object, blank means {}.
func (s *DocumentService) Upload(ctx context.Context, filename string, content []byte, author string, metadataJSON string) (domain.Document, error) {
	filename = strings.TrimSpace(filename)
	if err := validate.Struct(uploadRequest{Filename: filename, Author: author}); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	if s.maxSize > 0 && len(content) > s.maxSize {
		return domain.Document{}, fmt.Errorf("%w: %d bytes, limit is %d", errors.ErrDocumentTooLarge, len(content), s.maxSize)
	}
	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.store.Save(ctx, domain.Document{
		Filename: filename,
		Author:   author,
		MimeType: mimetypes.Parse(mimetype.Detect(content).String()),
		Metadata: metadata,
		Content:  content,
	})
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", errors.ErrOperationFailed, err)
	}

	if err = s.index.Index(doc); err != nil {
		s.log.Warn("Document stored but not indexed", "document_id", doc.ID, "error", err)
	}
	s.log.Info("Document uploaded",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"author", doc.Author,
		"version", doc.Version,
		"mime_type", doc.MimeType)
	return doc, nil
}

// Download returns nil, nil for an unknown id.
func (s *DocumentService) Download(ctx context.Context, id string) (*domain.DownloadedDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty document id", errors.ErrInvalidArgument)
	}
	doc, err := s.store.Load(ctx, id)
	if goerrors.Is(err, errors.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrOperationFailed, err)
	}
	return &domain.DownloadedDocument{Filename: doc.Filename, Content: doc.Content}, nil
}

// Load is Download with the full description, used by the HTTP endpoint.
func (s *DocumentService) Load(ctx context.Context, id string) (domain.Document, error) {
	return s.store.Load(ctx, id)
}

func (s *DocumentService) Search(ctx context.Context, query string) ([]domain.DocumentSummary, error) {
	hits, err := s.index.Search(ctx, query, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrOperationFailed, err)
	}
	return hits, nil
}

func parseMetadata(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var s structpb.Struct
	if err := protojson.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidMetadata, err)
	}
	return s.AsMap(), nil
}
