// Package ptyio turns a pseudo terminal into a virtual serial port: the slave end
// (/dev/pts/N) is handed to a serial client, the master end is served through ring
// buffers so the serving side never blocks.
//
//	port, err := ptyio.Open(ptyio.Options{ReadCap: 4096, WriteCap: 4096})
//	if err != nil {
//	    return err
//	}
//	defer port.Close()
//
//	port.SetReadCallback(func(data []byte) {
//	    // bytes the client wrote to port.TTYName()
//	})
//	port.Write(reply) // queued, never blocks
//
// PollTimeoutMs bounds how long the background loops sleep before they notice Close.
package ptyio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/srg/bgatt/internal/groutine"
)

// DefaultPollTimeoutMs is used when Options.PollTimeoutMs is zero.
const DefaultPollTimeoutMs = 50

// ErrorCallback is called at most once per background loop when it dies.
type ErrorCallback func(err error)

// ReadCallback receives bytes written by the client. It runs on the dispatcher
// goroutine and must not retain data.
type ReadCallback func(data []byte)

// Options configures Open.
type Options struct {
	ReadCap       int // bytes buffered from the client
	WriteCap      int // bytes buffered towards the client
	Logger        *logrus.Logger
	OnError       ErrorCallback
	PollTimeoutMs int
}

// PTY is the master side of a virtual serial port.
type PTY interface {
	io.ReadWriteCloser
	Stats() Stats
	TTYName() string
	SetReadCallback(cb ReadCallback)
}

// Stats are runtime counters.
type Stats struct {
	WriteQueueLen     int32
	WriteQueueCap     int32
	ReadQueueLen      int32
	ReadQueueCap      int32
	DroppedWriteCount uint64
	DroppedReadCount  uint64
	ReadBytesTotal    uint64
	WriteBytesTotal   uint64
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

type ringPTY struct {
	logger        *logrus.Logger
	master        *os.File
	slave         *os.File // held open so the device node stays valid
	ttyName       string
	onError       ErrorCallback
	pollTimeoutMs int

	writeBuf *ringbuffer.RingBuffer
	readBuf  *ringbuffer.RingBuffer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	readCb     atomic.Pointer[ReadCallback]
	readNotify chan struct{}
	errOnce    sync.Once
	closed     atomic.Bool

	droppedWrite atomic.Uint64
	droppedRead  atomic.Uint64
	readBytes    atomic.Uint64
	writeBytes   atomic.Uint64
}

// Open creates a pty pair in raw mode and starts the read, write and dispatch loops.
func Open(opts Options) (PTY, error) {
	if opts.ReadCap <= 0 || opts.WriteCap <= 0 {
		return nil, fmt.Errorf("pty buffer capacities must be positive (read %d, write %d)", opts.ReadCap, opts.WriteCap)
	}

	master, slave, err := createPTY()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = discardLogger
	}
	poll := opts.PollTimeoutMs
	if poll == 0 {
		poll = DefaultPollTimeoutMs
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &ringPTY{
		logger:        logger,
		master:        master,
		slave:         slave,
		ttyName:       slave.Name(),
		onError:       opts.OnError,
		pollTimeoutMs: poll,
		writeBuf:      ringbuffer.New(opts.WriteCap),
		readBuf:       ringbuffer.New(opts.ReadCap),
		ctx:           ctx,
		cancel:        cancel,
		readNotify:    make(chan struct{}, 1),
	}

	p.wg.Add(3)
	groutine.Go(ctx, "pty-read-loop", func(context.Context) { p.readLoop() })
	groutine.Go(ctx, "pty-write-loop", func(context.Context) { p.writeLoop() })
	groutine.Go(ctx, "pty-dispatcher", func(context.Context) { p.dispatch() })

	return p, nil
}

func (p *ringPTY) fail(err error) {
	p.logger.WithError(err).Warn("pty loop stopped")
	if p.onError != nil {
		p.errOnce.Do(func() { p.onError(err) })
	}
}

// writeLoop drains writeBuf into the master.
func (p *ringPTY) writeLoop() {
	defer p.wg.Done()

	fds := []unix.PollFd{{Fd: int32(p.master.Fd()), Events: unix.POLLOUT}}
	buf := make([]byte, 4096)

	for p.ctx.Err() == nil {
		if p.writeBuf.IsEmpty() {
			time.Sleep(time.Millisecond)
			continue
		}

		n, err := p.writeBuf.TryRead(buf)
		if n == 0 || errors.Is(err, ringbuffer.ErrIsEmpty) {
			continue
		}

		for off := 0; off < n; {
			written, err := p.master.Write(buf[off:n])
			off += written
			p.writeBytes.Add(uint64(written))
			switch {
			case err == nil, errors.Is(err, syscall.EINTR):
			case errors.Is(err, syscall.EAGAIN):
				if _, perr := unix.Poll(fds, p.pollTimeoutMs); perr != nil && !errors.Is(perr, syscall.EINTR) {
					p.logger.WithError(perr).Debug("pty write poll")
				}
			case errors.Is(err, syscall.EBADF), errors.Is(err, os.ErrClosed):
				return
			default:
				p.fail(fmt.Errorf("pty write: %w", err))
				return
			}
			if p.ctx.Err() != nil {
				return
			}
		}
	}
}

// readLoop copies bytes from the master into readBuf and wakes the dispatcher.
func (p *ringPTY) readLoop() {
	defer p.wg.Done()

	fds := []unix.PollFd{{Fd: int32(p.master.Fd()), Events: unix.POLLIN}}
	buf := make([]byte, 4096)

	for p.ctx.Err() == nil {
		ready, err := unix.Poll(fds, p.pollTimeoutMs)
		if err != nil && !errors.Is(err, syscall.EINTR) {
			p.logger.WithError(err).Debug("pty read poll")
			continue
		}
		if ready == 0 {
			continue
		}

		n, err := p.master.Read(buf)
		if n > 0 {
			stored, _ := p.readBuf.Write(buf[:n])
			if stored < n {
				p.droppedRead.Add(uint64(n - stored))
				p.logger.Warnf("pty read buffer full, dropped %d bytes", n-stored)
			}
			p.readBytes.Add(uint64(stored))
			select {
			case p.readNotify <- struct{}{}:
			default:
			}
		}

		switch {
		case err == nil, errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
		case errors.Is(err, syscall.EBADF), errors.Is(err, os.ErrClosed), errors.Is(err, io.EOF):
			return
		case errors.Is(err, syscall.EIO):
			// no client has the slave open; keep waiting for one
			time.Sleep(time.Duration(p.pollTimeoutMs) * time.Millisecond)
		default:
			p.fail(fmt.Errorf("pty read: %w", err))
			return
		}
	}
}

// dispatch hands buffered input to the read callback.
func (p *ringPTY) dispatch() {
	defer p.wg.Done()

	chunk := make([]byte, 4096)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.readNotify:
		}

		for p.ctx.Err() == nil {
			cb := p.readCb.Load()
			if cb == nil {
				break
			}
			n, err := p.readBuf.TryRead(chunk)
			if n == 0 || errors.Is(err, ringbuffer.ErrIsEmpty) {
				break
			}
			if !p.invoke(*cb, chunk[:n]) {
				break
			}
			runtime.Gosched()
		}
	}
}

// invoke runs cb, unregistering it if it panics.
func (p *ringPTY) invoke(cb ReadCallback, data []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.readCb.Store(nil)
			p.fail(fmt.Errorf("read callback panic: %v", r))
			ok = false
		}
	}()
	cb(data)
	return true
}

// Write queues data for the client. Bytes beyond the free buffer space are dropped
// and the short count is returned.
func (p *ringPTY) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, os.ErrClosed
	}
	if len(data) == 0 {
		return 0, nil
	}
	n, err := p.writeBuf.Write(data)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
		return n, err
	}
	if n < len(data) {
		p.droppedWrite.Add(uint64(len(data) - n))
		p.logger.Warnf("pty write buffer full, dropped %d bytes", len(data)-n)
	}
	return n, nil
}

// Read is non-blocking: it returns syscall.EAGAIN when nothing is buffered. It competes
// with the read callback for the same bytes, so use one or the other.
func (p *ringPTY) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, os.ErrClosed
	}
	if len(b) == 0 {
		return 0, nil
	}
	n, err := p.readBuf.TryRead(b)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0, err
	}
	if n == 0 {
		return 0, syscall.EAGAIN
	}
	return n, nil
}

// SetReadCallback registers cb, or unregisters with nil. Already buffered input is
// delivered right away.
func (p *ringPTY) SetReadCallback(cb ReadCallback) {
	if p.closed.Load() {
		return
	}
	if cb == nil {
		p.readCb.Store(nil)
		return
	}
	p.readCb.Store(&cb)
	select {
	case p.readNotify <- struct{}{}:
	default:
	}
}

// Close stops the loops and closes both ends. It waits up to a few poll periods.
func (p *ringPTY) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.cancel()

	var errs []error
	if err := p.master.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pty master: %w", err))
	}
	if err := p.slave.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pty slave: %w", err))
	}

	done := make(chan struct{})
	groutine.Go(context.Background(), "pty-close-wait", func(context.Context) {
		p.wg.Wait()
		close(done)
	})

	timeout := time.Duration(p.pollTimeoutMs)*time.Millisecond*3 + time.Second
	select {
	case <-done:
	case <-time.After(timeout):
		p.logger.Errorf("pty %s: loops still running %v after close", p.ttyName, timeout)
	}
	return errors.Join(errs...)
}

func (p *ringPTY) Stats() Stats {
	return Stats{
		WriteQueueLen:     int32(p.writeBuf.Length()),
		WriteQueueCap:     int32(p.writeBuf.Capacity()),
		ReadQueueLen:      int32(p.readBuf.Length()),
		ReadQueueCap:      int32(p.readBuf.Capacity()),
		DroppedWriteCount: p.droppedWrite.Load(),
		DroppedReadCount:  p.droppedRead.Load(),
		ReadBytesTotal:    p.readBytes.Load(),
		WriteBytesTotal:   p.writeBytes.Load(),
	}
}

func (p *ringPTY) TTYName() string {
	return p.ttyName
}

// createPTY opens a pair, puts the slave in raw mode so binary frames pass untouched,
// and makes the master non-blocking.
func createPTY() (*os.File, *os.File, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pty: %w", err)
	}

	cleanup := func(cause error) error {
		return errors.Join(cause, master.Close(), slave.Close())
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		return nil, nil, cleanup(fmt.Errorf("failed to set %s to raw mode: %w", slave.Name(), err))
	}
	if err := syscall.SetNonblock(int(master.Fd()), true); err != nil {
		return nil, nil, cleanup(fmt.Errorf("failed to set pty master of %s non-blocking: %w", slave.Name(), err))
	}
	return master, slave, nil
}
