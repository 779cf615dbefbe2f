package engine

import "sync"

// Snapshot is a single-slot mailbox carrying the most recent audio
// block from the data callback to a reader on another goroutine. Writes
// overwrite; a reader that falls behind sees only the latest block,
// which is the right behavior for meters and visualizers.
type Snapshot struct {
	mu    sync.Mutex
	data  []float32
	valid int
}

// NewSnapshot creates a snapshot buffer. Capacity is rounded up to the
// next power of two so a full mixer period always fits.
func NewSnapshot(capacity int) *Snapshot {
	if capacity < 1 {
		capacity = 1
	}

	n := 1
	for n < capacity {
		n <<= 1
	}

	return &Snapshot{data: make([]float32, n)}
}

// Capacity reports the buffer size in samples.
func (s *Snapshot) Capacity() int {
	return len(s.data)
}

// Write publishes a block, truncating to capacity. The recorded valid
// length is what Read returns until the next write.
func (s *Snapshot) Write(block []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(s.data, block)
	s.valid = n
}

// Read copies the full buffer into dst, growing dst if it is smaller
// than the capacity, and returns dst along with the number of samples
// the last Write published. A snapshot that was never written returns
// length 0. The lock is held only for the copy.
func (s *Snapshot) Read(dst []float32) ([]float32, int) {
	if len(dst) < len(s.data) {
		dst = make([]float32, len(s.data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(dst, s.data)

	return dst, s.valid
}

// Reset zeroes the buffer and the valid length.
func (s *Snapshot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data {
		s.data[i] = 0
	}

	s.valid = 0
}
