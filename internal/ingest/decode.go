package ingest

import "unicode/utf8"

// Decode converts raw device bytes to text. Valid UTF-8 is returned as is.
// Anything else falls back to an ASCII-safe rendering where every byte
// outside the ASCII range becomes '?', so one corrupt byte never aborts
// the stream. The second result reports whether the fallback was used.
func Decode(raw []byte) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), false
	}
	out := make([]byte, len(raw))
	for i, b := range raw {
		if b < utf8.RuneSelf {
			out[i] = b
		} else {
			out[i] = '?'
		}
	}
	return string(out), true
}
