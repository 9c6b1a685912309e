package pdftext

// DefaultChunkSize bounds how much text goes into a single completion
// request during summarization.
const DefaultChunkSize = 2048

// SplitChunks slices text into consecutive segments of at most size runes;
// the last segment may be shorter. Boundaries count characters only, not
// words or sentences. Concatenating the result reproduces the input
// exactly, and a text of L runes yields ceil(L/size) segments.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
