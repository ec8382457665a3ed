package mm

// classSize returns the block size managed by descriptor idx (0 ⇒
// MinBlockSize, NumClasses-1 ⇒ MaxBlockSize).
func classSize(idx int) uint32 {
	return MinBlockSize << uint(idx)
}

// classIndexFor returns the smallest class index whose size is ≥ size, and
// false if size exceeds MaxBlockSize.
func classIndexFor(size uint32) (int, bool) {
	if size == 0 || size > MaxBlockSize {
		return 0, false
	}
	idx := 0
	blockSize := uint32(MinBlockSize)
	for blockSize < size {
		blockSize <<= 1
		idx++
	}
	return idx, true
}

// classIndexForExact maps an exact block size (as read from a slot map
// entry) back to its descriptor index. Corruption (a size that is not one
// of the known classes) is the caller's concern to assert on.
func classIndexForExact(size uint32) (int, bool) {
	for i := 0; i < NumClasses; i++ {
		if classSize(i) == size {
			return i, true
		}
	}
	return 0, false
}
