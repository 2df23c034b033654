package repositories

import (
	"chat-relay/domain"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	documentMetaPrefix    = "doc:meta:"
	documentBlobPrefix    = "doc:blob:"
	documentVersionPrefix = "doc:version:"

	// Concurrent uploads of the same (author, filename) conflict on the
	// version key, the loser retries.
	maxSaveAttempts = 5
)

// DocumentRepository stores documents in BadgerDB:
//   - doc:meta:{id}    the description, a protobuf Struct
//   - doc:blob:{id}    the raw content
//   - doc:version:{len(author)}:{author}:{filename}    last version number
type DocumentRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewDocumentRepository(db *badger.DB, log *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, log: log}
}

// Save assigns an id and the next version for (author, filename), then
// writes description, content and version counter in one transaction.
func (d *DocumentRepository) Save(ctx context.Context, doc domain.Document) (domain.Document, error) {
	doc.ID = uuid.NewString()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.Size = len(doc.Content)
	versionKey := []byte(versionKeyOf(doc.Author, doc.Filename))

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Document{}, err
		}
		err := d.db.Update(func(txn *badger.Txn) error {
			previous, err := readVersion(txn, versionKey)
			if err != nil {
				return err
			}
			doc.Version = previous + 1

			meta, err := fromDocument(doc)
			if err != nil {
				return err
			}
			data, err := proto.Marshal(meta)
			if err != nil {
				return fmt.Errorf("marshal failed: %w", err)
			}
			if err = txn.Set([]byte(documentMetaPrefix+doc.ID), data); err != nil {
				return err
			}
			if err = txn.Set([]byte(documentBlobPrefix+doc.ID), doc.Content); err != nil {
				return err
			}
			return txn.Set(versionKey, []byte(strconv.Itoa(doc.Version)))
		})
		if err == nil {
			d.log.Debug("Document stored",
				"document_id", doc.ID,
				"filename", doc.Filename,
				"version", doc.Version,
				"size", doc.Size)
			return doc, nil
		}
		if !goerrors.Is(err, badger.ErrConflict) || attempt == maxSaveAttempts {
			return domain.Document{}, err
		}
		d.log.Debug("Version conflict, retrying", "filename", doc.Filename, "attempt", attempt)
	}
}

// Load returns ErrDocumentNotFound for an unknown id.
func (d *DocumentRepository) Load(ctx context.Context, id string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	var doc domain.Document
	err := d.db.View(func(txn *badger.Txn) error {
		meta, err := readMeta(txn, id)
		if err != nil {
			return err
		}
		if doc, err = toDocument(meta); err != nil {
			return err
		}
		item, err := txn.Get([]byte(documentBlobPrefix + id))
		if err != nil {
			return err
		}
		doc.Content, err = item.ValueCopy(nil)
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Document{}, fmt.Errorf("%w: %s", errors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// List walks every stored description, content excluded.
func (d *DocumentRepository) List(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := d.db.View(func(txn *badger.Txn) error {
		prefix := []byte(documentMetaPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta structpb.Struct
			if err := it.Item().Value(func(val []byte) error {
				return proto.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			doc, err := toDocument(&meta)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func versionKeyOf(author, filename string) string {
	// The author length keeps ("a:b", "c") and ("a", "b:c") apart
	return fmt.Sprintf("%s%d:%s:%s", documentVersionPrefix, len(author), author, filename)
}

func readVersion(txn *badger.Txn, key []byte) (int, error) {
	item, err := txn.Get(key)
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version int
	err = item.Value(func(val []byte) error {
		version, err = strconv.Atoi(string(val))
		return err
	})
	return version, err
}

func readMeta(txn *badger.Txn, id string) (*structpb.Struct, error) {
	item, err := txn.Get([]byte(documentMetaPrefix + id))
	if err != nil {
		return nil, err
	}
	var meta structpb.Struct
	err = item.Value(func(val []byte) error {
		return proto.Unmarshal(val, &meta)
	})
	return &meta, err
}

func fromDocument(doc domain.Document) (*structpb.Struct, error) {
	metadata, err := structpb.NewStruct(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidMetadata, err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(doc.ID),
		"filename":   structpb.NewStringValue(doc.Filename),
		"author":     structpb.NewStringValue(doc.Author),
		"version":    structpb.NewNumberValue(float64(doc.Version)),
		"mime_type":  structpb.NewStringValue(doc.MimeType.String()),
		"size":       structpb.NewNumberValue(float64(doc.Size)),
		"created_at": structpb.NewStringValue(doc.CreatedAt.Format(time.RFC3339Nano)),
		"metadata":   structpb.NewStructValue(metadata),
	}}, nil
}

func toDocument(meta *structpb.Struct) (domain.Document, error) {
	f := meta.GetFields()
	createdAt, err := time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue())
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{
		ID:        f["id"].GetStringValue(),
		Filename:  f["filename"].GetStringValue(),
		Author:    f["author"].GetStringValue(),
		Version:   int(f["version"].GetNumberValue()),
		MimeType:  mimetypes.MIME(f["mime_type"].GetStringValue()),
		Size:      int(f["size"].GetNumberValue()),
		Metadata:  f["metadata"].GetStructValue().AsMap(),
		CreatedAt: createdAt,
	}, nil
}
