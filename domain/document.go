package domain

import (
	"chat-relay/domain/mimetypes"
	"time"
)

// Document is an uploaded file. Versions are counted per (Author, Filename).
type Document struct {
	ID        string
	Filename  string
	Author    string
	Version   int
	MimeType  mimetypes.MIME
	Size      int
	Metadata  map[string]any
	Content   []byte
	CreatedAt time.Time
}

// DocumentSummary is what a search hit returns: no content.
type DocumentSummary struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Author   string         `json:"author"`
	Version  int            `json:"version"`
	MimeType mimetypes.MIME `json:"mimeType"`
}

func (d Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:       d.ID,
		Filename: d.Filename,
		Author:   d.Author,
		Version:  d.Version,
		MimeType: d.MimeType,
	}
}

// DownloadedDocument is the payload returned to a client asking for a document.
type DownloadedDocument struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}
