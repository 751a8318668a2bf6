package compare

// isBinaryContent reports whether data looks binary: a NUL byte within the first 512 bytes.
func isBinaryContent(data []byte) bool {
	checkSize := min(len(data), 512)
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
