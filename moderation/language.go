package moderation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

// Reliable detections pick the dictionary of the detected language only.
// Short chat lines rarely reach it, they are checked against every word.
const minConfidence = 0.5

// LanguageModerator picks a Moderator by detected language and falls back
// to a moderator built from every dictionary.
type LanguageModerator struct {
	log        *slog.Logger
	byLanguage map[string]Moderator
	fallback   Moderator
}

// NewLanguageModerator builds one automaton per language (ISO 639-1 keys)
// plus the merged fallback.
func NewLanguageModerator(byLanguage map[string][]string, censoredChar rune, log *slog.Logger) (*LanguageModerator, error) {
	moderators := make(map[string]Moderator, len(byLanguage))
	for lang, words := range byLanguage {
		m, err := NewModerator(words, censoredChar, log)
		if err != nil {
			return nil, err
		}
		moderators[lang] = m
	}
	fallback, err := NewModerator(lo.Uniq(lo.Flatten(lo.Values(byLanguage))), censoredChar, log)
	if err != nil {
		return nil, err
	}
	return &LanguageModerator{log: log, byLanguage: moderators, fallback: fallback}, nil
}

// Censor returns the sanitized text and the words found.
func (l *LanguageModerator) Censor(text string) (string, []string) {
	info := whatlanggo.Detect(text)
	lang := info.Lang.Iso6391()
	if m, ok := l.byLanguage[lang]; ok && info.Confidence >= minConfidence {
		l.log.Debug("Language detected", "lang", lang, "confidence", info.Confidence)
		return m.Censor(text)
	}
	return l.fallback.Censor(text)
}

// Languages lists the dictionaries loaded.
func (l *LanguageModerator) Languages() []string {
	return lo.Keys(l.byLanguage)
}
