package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected MIME
		want     bool
	}{
		{"Plain text with charset", "text/plain; charset=utf-8", TextPlain, true},
		{"HTML text", "text/html; charset=utf-8", TextHTML, true},
		{"JSON", "application/json", ApplicationJSON, true},
		{"PDF", "application/pdf", ApplicationPDF, true},
		{"XML detected as text/xml", "text/xml; charset=utf-8", ApplicationXML, false},
		{"PNG", "image/png", ImagePNG, true},
		{"Mismatch", "text/plain; charset=utf-8", ApplicationJSON, false},
		{"Unknown type", "application/octet-stream", TextPlain, false},
		{"Invalid MIME", "not a mime", TextPlain, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Matches(tt.detected, tt.expected)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestMIME_IsTextual(t *testing.T) {
	req := require.New(t)
	req.True(Parse("text/plain; charset=utf-8").IsTextual())
	req.True(TextCSV.IsTextual())
	req.True(ApplicationJSON.IsTextual())
	req.False(ImagePNG.IsTextual())
	req.False(OctetStream.IsTextual())
	req.Equal(Unknown, Parse("%%%"))
}
