// Package telemetry provides OpenTelemetry backed step spans and routes step
// output to the renderer.
package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultSizeLimit is the buffered byte count that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is how long buffered output may wait for a flush.
	DefaultTimeLimit = 50 * time.Millisecond
)

// ErrBatcherClosed is returned by Write after Close.
var ErrBatcherClosed = zerr.New("step output batcher is closed")

// BatchProcessor collects step output and hands it to a callback in chunks.
// A chunk is delivered once the buffer holds sizeLimit bytes or timeLimit
// after the first unflushed write, whichever comes first. Size triggered
// flushes stop at the last complete line when there is one.
type BatchProcessor struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	timer  *time.Timer
	closed bool
}

// NewBatchProcessor returns a BatchProcessor delivering to onFlush.
// Non-positive limits select the defaults.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return &BatchProcessor{
		sizeLimit: sizeLimit,
		timeLimit: timeLimit,
		onFlush:   onFlush,
	}
}

// Write buffers p. It never blocks on the callback except when p fills the
// buffer.
func (bp *BatchProcessor) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, ErrBatcherClosed
	}

	n, _ := bp.buffer.Write(p)
	if bp.buffer.Len() >= bp.sizeLimit {
		bp.deliverLocked(lineBoundary(bp.buffer.Bytes()))
	}
	if bp.buffer.Len() > 0 && bp.timer == nil {
		bp.timer = time.AfterFunc(bp.timeLimit, bp.Flush)
	}
	return n, nil
}

// Flush delivers everything buffered so far.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return
	}
	bp.deliverLocked(bp.buffer.Len())
}

// Close delivers the remaining output. Later writes fail with
// ErrBatcherClosed.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}
	bp.deliverLocked(bp.buffer.Len())
	bp.closed = true
	return nil
}

// deliverLocked hands the first n buffered bytes to the callback and disarms
// the timer. The callback runs under mu so chunks keep write order.
func (bp *BatchProcessor) deliverLocked(n int) {
	if bp.timer != nil {
		bp.timer.Stop()
		bp.timer = nil
	}
	if n == 0 {
		return
	}
	chunk := bytes.Clone(bp.buffer.Next(n))
	if bp.onFlush != nil {
		bp.onFlush(chunk)
	}
}

// lineBoundary returns the length of data up to and including its last
// newline, or len(data) if it has none.
func lineBoundary(data []byte) int {
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		return i + 1
	}
	return len(data)
}
