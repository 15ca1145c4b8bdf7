package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
//
// A nil src with cloneSize 0 yields nil, so optional payloads stay absent.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if src == nil && cloneSize == 0 {
		return nil
	}
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}
