// Package chunker splits conversation transcripts into chunks for search
// indexing.
package chunker

import (
	"regexp"
	"strings"
)

const (
	DefaultTargetSize = 400
	DefaultMinSize    = 100
	DefaultMaxSize    = 600
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MinSize    int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MinSize:    DefaultMinSize,
		MaxSize:    DefaultMaxSize,
	}
}

// ChunkResult represents a chunk with its position in the original text.
type ChunkResult struct {
	Text      string
	StartLine int
	EndLine   int
}

// speakerRe matches a transcript turn such as "Nurse:" or "[Caregiver]".
var speakerRe = regexp.MustCompile(`^(\[[^\]]{1,40}\]|[A-Z][A-Za-z .'-]{0,30}:)\s`)

// Chunk splits text into chunks. Short text (<= MaxSize) returns a single chunk.
func Chunk(text string, opts Options) []ChunkResult {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	if len(text) <= opts.MaxSize {
		lines := strings.Count(text, "\n")
		return []ChunkResult{{Text: text, StartLine: 1, EndLine: lines + 1}}
	}

	return mergeBlocks(splitTurns(text), opts)
}

type block struct {
	text      string
	startLine int
	endLine   int
}

// splitTurns splits text at speaker changes and blank lines.
func splitTurns(text string) []block {
	lines := strings.Split(text, "\n")
	var blocks []block
	var current []string
	startLine := 1

	flush := func(endLine int) {
		if len(current) > 0 {
			if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
				blocks = append(blocks, block{text: t, startLine: startLine, endLine: endLine})
			}
		}
		current = nil
		startLine = endLine + 1
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush(lineNum)
			continue
		}
		if speakerRe.MatchString(trimmed) && len(current) > 0 {
			flush(lineNum - 1)
		}
		current = append(current, line)
	}
	flush(len(lines))

	return blocks
}

// mergeBlocks combines small turns and splits oversized ones.
func mergeBlocks(blocks []block, opts Options) []ChunkResult {
	var results []ChunkResult
	var accum block

	flushAccum := func() {
		t := strings.TrimSpace(accum.text)
		if t == "" {
			return
		}
		if len(t) > opts.MaxSize {
			results = append(results, hardSplit(t, accum.startLine, opts)...)
		} else {
			results = append(results, ChunkResult{Text: t, StartLine: accum.startLine, EndLine: accum.endLine})
		}
		accum = block{}
	}

	for _, b := range blocks {
		if accum.text == "" {
			accum = b
			continue
		}
		combined := accum.text + "\n" + b.text
		if len(combined) <= opts.TargetSize || len(accum.text) < opts.MinSize {
			accum.text = combined
			accum.endLine = b.endLine
		} else {
			flushAccum()
			accum = b
		}
	}
	flushAccum()

	return results
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// hardSplit breaks an oversized turn at sentence boundaries, falling back to
// whitespace when a single sentence is still too long. Line numbers refer to
// the line the piece starts on.
func hardSplit(text string, startLine int, opts Options) []ChunkResult {
	var pieces []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		pieces = append(pieces, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		pieces = append(pieces, text[last:])
	}

	var results []ChunkResult
	var cur strings.Builder
	line := startLine
	curStart := startLine

	emit := func() {
		t := strings.TrimSpace(cur.String())
		if t != "" {
			results = append(results, ChunkResult{Text: t, StartLine: curStart, EndLine: line})
		}
		cur.Reset()
		curStart = line
	}

	for _, p := range pieces {
		for _, part := range splitWords(p, opts.MaxSize) {
			if cur.Len() > 0 && cur.Len()+len(part) > opts.TargetSize {
				emit()
			}
			cur.WriteString(part)
			line += strings.Count(part, "\n")
		}
	}
	emit()
	return results
}

// splitWords cuts s into pieces no longer than max, breaking at spaces.
func splitWords(s string, max int) []string {
	if len(s) <= max {
		return []string{s}
	}
	var out []string
	for len(s) > max {
		cut := strings.LastIndexAny(s[:max], " \n")
		if cut <= 0 {
			cut = max
		}
		out = append(out, s[:cut+1])
		s = s[cut+1:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
