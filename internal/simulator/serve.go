package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/groutine"
	"github.com/srg/bgatt/internal/ptyio"
)

// Serve answers commands read from port until ctx ends or the peer closes the stream.
// It blocks. Notifications pushed with Notify, or produced by notify_every, are
// written to the same port.
func (s *Simulator) Serve(ctx context.Context, port io.ReadWriteCloser, packetMode bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	write := s.frameWriter(port, packetMode)
	s.setEmitter(write)
	defer s.setEmitter(nil)

	groutine.Go(ctx, "simulator-port-closer", func(ctx context.Context) {
		<-ctx.Done()
		_ = port.Close()
	})

	// notifiers must be gone before the emitter is cleared
	var notifiers groutine.Group
	defer func() {
		cancel()
		notifiers.Wait()
	}()
	s.startNotifiers(ctx, &notifiers)

	for {
		cmd, err := bgapi.ReadFrame(port, packetMode)
		if err != nil {
			if cmd != nil {
				s.logger.WithError(err).Warn("Simulator dropping malformed command")
				continue
			}
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("simulator read failed: %w", err)
		}
		for _, p := range s.Handle(cmd) {
			write(p)
		}
	}
}

// ServePTY exposes the simulator on a fresh pseudo terminal. Point a client at the
// returned port's TTYName. The pty is closed when ctx ends.
func (s *Simulator) ServePTY(ctx context.Context, packetMode bool) (ptyio.PTY, error) {
	port, err := ptyio.Open(ptyio.Options{
		ReadCap:  4096,
		WriteCap: 16384,
		Logger:   s.logger,
		OnError: func(err error) {
			s.logger.WithError(err).Error("Simulator pty failed")
		},
	})
	if err != nil {
		return nil, err
	}

	write := s.frameWriter(port, packetMode)
	s.setEmitter(write)

	asm := &bgapi.Assembler{PacketMode: packetMode}
	port.SetReadCallback(func(data []byte) {
		for _, cmd := range asm.Feed(data) {
			for _, p := range s.Handle(cmd) {
				write(p)
			}
		}
	})

	var notifiers groutine.Group
	s.startNotifiers(ctx, &notifiers)
	groutine.Go(ctx, "simulator-pty-closer", func(ctx context.Context) {
		<-ctx.Done()
		notifiers.Wait()
		s.setEmitter(nil)
		_ = port.Close()
	})

	s.logger.WithField("tty", port.TTYName()).Info("Simulator listening")
	return port, nil
}

func (s *Simulator) frameWriter(w io.Writer, packetMode bool) func(bgapi.Packet) {
	var mu sync.Mutex
	return func(p bgapi.Packet) {
		wire, err := bgapi.Encode(p, packetMode)
		if err != nil {
			s.logger.WithError(err).Warn("Simulator cannot encode frame")
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if _, err := w.Write(wire); err != nil {
			s.logger.WithError(err).Debug("Simulator write failed")
		}
	}
}

// startNotifiers runs one ticker per characteristic with notify_every set.
func (s *Simulator) startNotifiers(ctx context.Context, group *groutine.Group) {
	s.mu.Lock()
	var periodic []*attribute
	for pair := s.table.rows.Oldest(); pair != nil; pair = pair.Next() {
		if a := pair.Value; a.kind == attrValue && a.notifyEvery > 0 {
			periodic = append(periodic, a)
		}
	}
	s.mu.Unlock()

	for _, a := range periodic {
		handle, every := a.handle, a.notifyEvery
		group.Go(ctx, fmt.Sprintf("simulator-notify-%04x", handle), func(ctx context.Context) {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					value, _ := s.Value(handle)
					if len(value) == 0 {
						value = []byte{0}
					}
					value[len(value)-1]++
					if s.Notify(handle, value) {
						s.logger.WithFields(logrus.Fields{"handle": handle, "value": value}).Trace("Simulator notified")
					}
				}
			}
		})
	}
}
