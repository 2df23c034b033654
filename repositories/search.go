package repositories

import (
	"chat-relay/domain"
	"chat-relay/domain/mimetypes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/blugelabs/bluge"
)

const (
	fieldFilename   = "filename"
	fieldFilenameLC = "filename_lc"
	fieldAuthor     = "author"
	fieldVersion    = "version"
	fieldMimeType   = "mime_type"
	fieldText       = "text"
)

// DocumentIndex keeps a Bluge full-text index of document descriptions:
// filename words, author and metadata values. Content is never indexed.
type DocumentIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewDocumentIndex(writer *bluge.Writer, log *slog.Logger) *DocumentIndex {
	return &DocumentIndex{writer: writer, log: log}
}

func (i *DocumentIndex) Index(doc domain.Document) error {
	bdoc := bluge.NewDocument(doc.ID).
		AddField(bluge.NewKeywordField(fieldFilename, doc.Filename).StoreValue()).
		AddField(bluge.NewKeywordField(fieldFilenameLC, strings.ToLower(doc.Filename))).
		AddField(bluge.NewKeywordField(fieldAuthor, doc.Author).StoreValue()).
		AddField(bluge.NewKeywordField(fieldVersion, strconv.Itoa(doc.Version)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldMimeType, doc.MimeType.String()).StoreValue()).
		AddField(bluge.NewTextField(fieldText, searchableText(doc)))

	if err := i.writer.Update(bdoc.ID(), bdoc); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return nil
}

// Search matches query against the indexed text or as a filename prefix.
// Hits come back by decreasing score.
func (i *DocumentIndex) Search(ctx context.Context, query string, limit int) ([]domain.DocumentSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []domain.DocumentSummary{}, nil
	}

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField(fieldText)).
		AddShould(bluge.NewPrefixQuery(strings.ToLower(query)).SetField(fieldFilenameLC)).
		SetMinShould(1)

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Error while closing index reader", "error", err)
		}
	}()

	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	summaries := []domain.DocumentSummary{}
	match, err := it.Next()
	for err == nil && match != nil {
		var s domain.DocumentSummary
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				s.ID = string(value)
			case fieldFilename:
				s.Filename = string(value)
			case fieldAuthor:
				s.Author = string(value)
			case fieldVersion:
				s.Version, _ = strconv.Atoi(string(value))
			case fieldMimeType:
				s.MimeType = mimetypes.MIME(string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
		match, err = it.Next()
	}
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// searchableText splits the filename on anything that is not a letter or a
// digit ("q3-report.pdf" gives "q3 report pdf") and appends the author and
// every metadata value, keys sorted for a stable output.
func searchableText(doc domain.Document) string {
	parts := strings.FieldsFunc(doc.Filename, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	parts = append(parts, doc.Author)

	for _, k := range slices.Sorted(maps.Keys(doc.Metadata)) {
		parts = append(parts, k)
		parts = appendValues(parts, doc.Metadata[k])
	}
	return strings.Join(parts, " ")
}

func appendValues(parts []string, v any) []string {
	switch value := v.(type) {
	case nil:
		return parts
	case string:
		return append(parts, value)
	case []any:
		for _, item := range value {
			parts = appendValues(parts, item)
		}
		return parts
	case map[string]any:
		for _, item := range value {
			parts = appendValues(parts, item)
		}
		return parts
	default:
		return append(parts, fmt.Sprint(value))
	}
}
