package imagepipe

import "strings"

// FragmentCount matches the three fragment columns of the storage layout.
const FragmentCount = 3

// Split cuts body into n contiguous fragments of ceil(len(body)/n) bytes.
// The last fragments may be shorter, or empty when the body is short or an
// exact multiple. Joining the result in order reproduces body exactly; an
// empty body yields n empty strings.
func Split(body string, n int) []string {
	fragments := make([]string, n)
	size := (len(body) + n - 1) / n
	for i := 0; i < n; i++ {
		start := i * size
		if start > len(body) {
			start = len(body)
		}
		end := start + size
		if end > len(body) {
			end = len(body)
		}
		fragments[i] = body[start:end]
	}
	return fragments
}

// Join is the exact inverse of Split: ordered concatenation.
func Join(fragments []string) string {
	return strings.Join(fragments, "")
}
