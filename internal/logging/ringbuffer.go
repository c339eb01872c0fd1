package logging

import (
	"os"
	"strings"
	"sync"
)

// RingBuffer keeps the last N log lines in memory. It implements io.Writer;
// each Write is split on newlines and a trailing partial line is held until
// its newline arrives.
type RingBuffer struct {
	mu      sync.Mutex
	lines   []string
	next    int
	full    bool
	partial strings.Builder
}

// NewRingBuffer creates a ring holding up to capacity lines.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 2000
	}
	return &RingBuffer{lines: make([]string, capacity)}
}

// Write implements io.Writer. Old lines are overwritten once full.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	s := string(p)
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			rb.partial.WriteString(s)
			break
		}
		rb.partial.WriteString(s[:i])
		rb.push(rb.partial.String())
		rb.partial.Reset()
		s = s[i+1:]
	}
	return len(p), nil
}

func (rb *RingBuffer) push(line string) {
	rb.lines[rb.next] = line
	rb.next++
	if rb.next == len(rb.lines) {
		rb.next = 0
		rb.full = true
	}
}

// Tail returns up to n lines, oldest first. n <= 0 returns all of them.
func (rb *RingBuffer) Tail(n int) []string {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var all []string
	if rb.full {
		all = append(all, rb.lines[rb.next:]...)
	}
	all = append(all, rb.lines[:rb.next]...)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// DumpToFile writes the buffered lines to a file in chronological order.
func (rb *RingBuffer) DumpToFile(path string) error {
	lines := rb.Tail(0)
	if len(lines) == 0 {
		return os.WriteFile(path, nil, 0o644)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
