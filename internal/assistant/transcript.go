package assistant

import (
	"context"
	"regexp"
	"strings"
)

type TranscriptStatus int

const (
	TranscriptOK TranscriptStatus = iota
	TranscriptEmpty
	TranscriptFailed
)

type Transcript struct {
	Status TranscriptStatus
	Text   string
	Err    error
}

// whisper marks silence with bracket tags such as [BLANK_AUDIO] and
// background noise with whole-utterance captions such as (wind blowing).
var (
	tagRe     = regexp.MustCompile(`\[[^\]]*\]`)
	captionRe = regexp.MustCompile(`^(\s*\([^)]*\))+\s*$`)
)

// Clean drops non-speech markers from a transcription. Parenthesised words
// inside a real sentence are kept.
func Clean(text string) string {
	text = tagRe.ReplaceAllString(text, " ")
	if captionRe.MatchString(text) {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

func transcribe(ctx context.Context, tr Transcriber, pcm []float32) Transcript {
	if len(pcm) == 0 {
		return Transcript{Status: TranscriptEmpty}
	}

	text, err := tr.Transcribe(ctx, pcm)
	if err != nil {
		return Transcript{Status: TranscriptFailed, Err: err}
	}

	text = Clean(text)
	if Normalize(text) == "" {
		return Transcript{Status: TranscriptEmpty}
	}

	return Transcript{Status: TranscriptOK, Text: text}
}
