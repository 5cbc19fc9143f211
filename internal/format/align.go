package format

// RoundUp returns n rounded up to the next multiple of quantum.
// A zero length stays zero, and a zero quantum leaves n untouched.
//
// Example (quantum = 300):
//
//	RoundUp(0, 300)   = 0
//	RoundUp(1, 300)   = 300
//	RoundUp(300, 300) = 300
//	RoundUp(301, 300) = 600
func RoundUp(n, quantum uint64) uint64 {
	if n == 0 || quantum == 0 {
		return n
	}
	return (n + quantum - 1) / quantum * quantum
}

// Pages returns how many pages of pageSize are needed to hold n bytes.
func Pages(n, pageSize uint64) uint64 {
	if pageSize == 0 {
		return 0
	}
	return RoundUp(n, pageSize) / pageSize
}
