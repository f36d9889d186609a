package pipeline

import (
	"strings"
)

// charsPerToken is the coarse approximation the chunker uses to convert
// token-denominated config into the character offsets it actually
// operates on (1 token ~= 4 characters).
const charsPerToken = 4

// boundaryLookahead bounds how far past a candidate chunk end the chunker
// will search for a sentence terminator before giving up and cutting
// mid-sentence.
const boundaryLookahead = 200

var sentenceTerminators = []byte{'.', '!', '?', '\n'}

// textChunk is one segment produced by chunkText, before it is assigned
// an identifier and persisted.
type textChunk struct {
	Text  string
	Index int
}

// chunkText segments text into overlapping chunks using the
// character-approximate algorithm: a target chunk size and overlap
// expressed in characters, with each chunk's end nudged forward to the
// nearest sentence terminator within a bounded lookahead window.
//
// chunkSizeTokens and overlapTokens are converted to characters via
// charsPerToken; callers pass the tunables from config.Config.
func chunkText(text string, chunkSizeTokens, overlapTokens int) []textChunk {
	chunkSizeChars := chunkSizeTokens * charsPerToken
	overlapChars := overlapTokens * charsPerToken

	var chunks []textChunk
	start := 0
	index := 0

	for start < len(text) {
		end := start + chunkSizeChars
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			end = extendToBoundary(text, end)
		}

		candidate := strings.TrimSpace(text[start:end])
		if candidate != "" {
			chunks = append(chunks, textChunk{Text: candidate, Index: index})
			index++
		}

		next := end - overlapChars
		if next <= start {
			// Guarantee forward progress even if overlap would otherwise
			// stall the cursor (e.g. overlap >= chunk size).
			next = end
		}
		start = next
	}

	return chunks
}

// extendToBoundary searches forward from end, up to boundaryLookahead
// characters, for the nearest sentence terminator, returning the position
// just after it. If none is found within the window, end is returned
// unchanged — the chunk is simply cut at the target size.
func extendToBoundary(text string, end int) int {
	limit := len(text) - end
	if limit > boundaryLookahead {
		limit = boundaryLookahead
	}
	for i := 1; i <= limit; i++ {
		if isTerminator(text[end+i-1]) {
			return end + i
		}
	}
	return end
}

func isTerminator(b byte) bool {
	for _, t := range sentenceTerminators {
		if b == t {
			return true
		}
	}
	return false
}
