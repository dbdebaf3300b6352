package lua

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
)

// CollectorMetrics counts what a LuaOutputCollector has seen
type CollectorMetrics struct {
	RecordsProcessed   int64
	RecordsOverwritten int64
	ErrorsOccurred     int64
}

// LuaOutputCollector keeps the most recent output records in an overlapped ring buffer,
// for callers that want the output after the script rather than streamed.
type LuaOutputCollector struct {
	outputChan <-chan LuaOutputRecord
	buffer     mpmc.RichOverlappedRingBuffer[LuaOutputRecord]
	done       chan struct{}
	running    atomic.Bool

	processed   atomic.Int64
	overwritten atomic.Int64
	errors      atomic.Int64
}

// MaxBufferSize guards against accidental misconfiguration.
const MaxBufferSize uint32 = 1024 * 1024

// NewLuaOutputCollector creates a collector holding up to bufferSize records
func NewLuaOutputCollector(ch <-chan LuaOutputRecord, bufferSize uint32) (*LuaOutputCollector, error) {
	if ch == nil {
		return nil, fmt.Errorf("output channel cannot be nil")
	}
	if bufferSize == 0 {
		return nil, fmt.Errorf("buffer size must be > 0")
	}
	if bufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", bufferSize, MaxBufferSize)
	}

	return &LuaOutputCollector{
		outputChan: ch,
		buffer:     mpmc.NewOverlappedRingBuffer[LuaOutputRecord](bufferSize),
		done:       make(chan struct{}),
	}, nil
}

// Start collects until the output channel is closed
func (c *LuaOutputCollector) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("collector is already running")
	}

	go func() {
		defer close(c.done)
		for rec := range c.outputChan {
			overwrites, err := c.buffer.EnqueueM(rec)
			if err != nil {
				c.errors.Add(1)
				continue
			}
			c.overwritten.Add(int64(overwrites))
			c.processed.Add(1)
		}
	}()
	return nil
}

// Wait blocks until the output channel is closed and every record is buffered
func (c *LuaOutputCollector) Wait() {
	if c.running.Load() {
		<-c.done
	}
}

// GetMetrics returns a snapshot of the counters
func (c *LuaOutputCollector) GetMetrics() CollectorMetrics {
	return CollectorMetrics{
		RecordsProcessed:   c.processed.Load(),
		RecordsOverwritten: c.overwritten.Load(),
		ErrorsOccurred:     c.errors.Load(),
	}
}

// Records dequeues every buffered record, oldest first
func (c *LuaOutputCollector) Records() ([]LuaOutputRecord, error) {
	var out []LuaOutputRecord
	for !c.buffer.IsEmpty() {
		rec, err := c.buffer.Dequeue()
		if err != nil {
			return out, fmt.Errorf("buffer dequeue error: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ConsumePlainText concatenates the content of every buffered record
func (c *LuaOutputCollector) ConsumePlainText() (string, error) {
	records, err := c.Records()
	var sb strings.Builder
	for _, rec := range records {
		sb.WriteString(rec.Content)
	}
	return sb.String(), err
}
