package repositories

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Describe labels a raw Badger entry for the debug inspector.
// Password hashes are never shown.
func Describe(key string, val []byte) (kind string, detail string) {
	switch {
	case strings.HasPrefix(key, userPrefix):
		var record structpb.Struct
		if err := proto.Unmarshal(val, &record); err != nil {
			return "USER", "Error: unmarshal failed"
		}
		user := toUser(&record)
		return "USER", fmt.Sprintf("%s since %s", user.Username, user.CreatedAt.Format("2006-01-02"))
	case strings.HasPrefix(key, documentMetaPrefix):
		var meta structpb.Struct
		if err := proto.Unmarshal(val, &meta); err != nil {
			return "DOCUMENT", "Error: unmarshal failed"
		}
		doc, err := toDocument(&meta)
		if err != nil {
			return "DOCUMENT", "Error: " + err.Error()
		}
		return "DOCUMENT", fmt.Sprintf("%s v%d by %s (%s, %d bytes)", doc.Filename, doc.Version, doc.Author, doc.MimeType, doc.Size)
	case strings.HasPrefix(key, documentBlobPrefix):
		return "BLOB", fmt.Sprintf("%d bytes", len(val))
	case strings.HasPrefix(key, documentVersionPrefix):
		version, err := strconv.Atoi(string(val))
		if err != nil {
			return "VERSION", string(val)
		}
		return "VERSION", "latest v" + strconv.Itoa(version)
	default:
		return "UNKNOWN", ""
	}
}
