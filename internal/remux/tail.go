package remux

import (
	"bytes"
	"strings"
	"sync"
)

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	next    int
	full    bool
	partial []byte
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 20
	}
	return &tailBuffer{max: max, lines: make([]string, max)}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data := p
	for {
		idx := bytes.IndexAny(data, "\r\n")
		if idx < 0 {
			t.partial = append(t.partial, data...)
			break
		}
		line := append(t.partial, data[:idx]...)
		t.partial = t.partial[:0]
		t.push(string(line))
		data = data[idx+1:]
	}
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % t.max
	if t.next == 0 {
		t.full = true
	}
}

// Lines returns the retained lines oldest first, including any unterminated tail.
func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.partial) > 0 {
		t.push(string(t.partial))
		t.partial = t.partial[:0]
	}
	var out []string
	if t.full {
		out = append(out, t.lines[t.next:]...)
	}
	out = append(out, t.lines[:t.next]...)
	return out
}
