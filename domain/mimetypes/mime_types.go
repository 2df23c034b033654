package mimetypes

import (
	"mime"
	"strings"
)

type MIME string

const (
	Unknown         MIME = "unknown"
	OctetStream     MIME = "application/octet-stream"
	TextPlain       MIME = "text/plain"
	TextHTML        MIME = "text/html"
	TextCSV         MIME = "text/csv"
	TextMarkdown    MIME = "text/markdown"
	ApplicationJSON MIME = "application/json"
	ApplicationXML  MIME = "application/xml"
	ApplicationPDF  MIME = "application/pdf"
	ApplicationZip  MIME = "application/zip"
	ImagePNG        MIME = "image/png"
	ImageJPEG       MIME = "image/jpeg"
	ImageGIF        MIME = "image/gif"
)

// Parse strips parameters such as charset from a detected media type.
func Parse(detected string) MIME {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown
	}
	return MIME(mt)
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt := Parse(detected)
	if mt == Unknown {
		return Unknown, false
	}
	return expected, mt == expected
}

// IsTextual tells whether the content can be fed to the full-text index.
func (m MIME) IsTextual() bool {
	switch m {
	case ApplicationJSON, ApplicationXML:
		return true
	}
	return strings.HasPrefix(string(m), "text/")
}

func (m MIME) String() string {
	return string(m)
}
