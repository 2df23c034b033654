package runtime

import (
	"bufio"
	"bytes"
	"chat-relay/errors"
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// CensoredFolder holds one dictionary per language, named after its
// ISO 639-1 code (en.txt, de.txt...).
//
//go:embed censored/*
var CensoredFolder embed.FS

// CensoredData carries the result of the loading process including metadata for logging.
type CensoredData struct {
	Words      []string
	Languages  []string
	ByLanguage map[string][]string
}

// CensoredLoader is responsible for reading and parsing blacklisted words from a filesystem.
type CensoredLoader struct {
	fs fs.FS
}

func NewCensoredLoader(f fs.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// LoadAll scans dir for .txt dictionaries. Every non-blank line is a word,
// comments start with '#'. Words are kept per language and merged.
func (l *CensoredLoader) LoadAll(dir string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	byLanguage := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".txt")

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings
		var words []string
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		if len(words) > 0 {
			byLanguage[lang] = lo.Uniq(words)
		}
	}

	if len(byLanguage) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := lo.Uniq(lo.Flatten(lo.Values(byLanguage)))
	slices.Sort(words)
	languages := lo.Keys(byLanguage)
	slices.Sort(languages)

	return &CensoredData{
		Words:      words,
		Languages:  languages,
		ByLanguage: byLanguage,
	}, nil
}
