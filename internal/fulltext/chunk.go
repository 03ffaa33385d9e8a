package fulltext

// Split cuts text into chunks of at most size characters, each overlapping
// the tail of its predecessor by overlap characters. The last chunk may be
// shorter. Boundaries are computed over runes so multi-byte characters are
// never split.
//
// Invariant: chunk[i+1] starts exactly size-overlap runes after chunk[i],
// so every position of the input is covered and context at chunk borders is
// preserved.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
