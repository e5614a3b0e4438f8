package host

import (
	"bytes"
)

// boundedBuffer collects print output up to a limit and silently discards
// the rest.
type boundedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	truncated bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

// WriteLine appends msg and a newline.
func (b *boundedBuffer) WriteLine(msg string) {
	b.write(msg)
	b.write("\n")
}

func (b *boundedBuffer) write(s string) {
	remaining := b.limit - b.buffer.Len()
	if remaining <= 0 {
		b.truncated = len(s) > 0 || b.truncated
		return
	}
	if len(s) > remaining {
		b.truncated = true
		s = s[:remaining]
	}
	b.buffer.WriteString(s)
}

func (b *boundedBuffer) String() string {
	return b.buffer.String()
}

func (b *boundedBuffer) Truncated() bool {
	return b.truncated
}

func (b *boundedBuffer) Reset() {
	b.buffer.Reset()
	b.truncated = false
}
