package barcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Scanner drives a Detector from real time. Keys may arrive from any
// goroutine; onScan is called outside the lock, once per completed scan.
type Scanner struct {
	mu      sync.Mutex
	det     *Detector
	timer   *time.Timer
	stopped bool
	onScan  func(code string)
	now     func() time.Time
}

// NewScanner returns a scanner that reports completed scans to onScan.
func NewScanner(cfg Config, onScan func(code string)) *Scanner {
	return &Scanner{
		det:    NewDetector(cfg),
		onScan: onScan,
		now:    time.Now,
	}
}

// Key feeds a printable key.
func (s *Scanner) Key(r rune) {
	s.feed(Event{Rune: r, At: s.now()})
}

// Enter feeds the terminator key.
func (s *Scanner) Enter() {
	s.feed(Event{Enter: true, At: s.now()})
}

// Stop cancels the pending flush. Later keys are ignored.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.det.Reset()
}

func (s *Scanner) feed(ev Event) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	code, ok := s.det.Feed(ev)
	s.rescheduleLocked()
	s.mu.Unlock()

	if ok {
		s.onScan(code)
	}
}

func (s *Scanner) expire() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	// A key that arrived while this timer was firing has already moved the
	// deadline, in which case Expire is a no-op.
	code, ok := s.det.Expire(s.now())
	s.rescheduleLocked()
	s.mu.Unlock()

	if ok {
		s.onScan(code)
	}
}

// rescheduleLocked always clears the pending timer before arming a new one.
func (s *Scanner) rescheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	deadline, ok := s.det.Deadline()
	if !ok {
		return
	}
	s.timer = time.AfterFunc(deadline.Sub(s.now()), s.expire)
}

// Listen reads raw terminal input from r and feeds it to s until EOF,
// Ctrl-C / Ctrl-D, or ctx is done. r is expected to be a terminal in raw
// mode so keys arrive one by one.
func Listen(ctx context.Context, r io.Reader, s *Scanner) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ch, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading scanner input: %w", err)
		}

		switch ch {
		case '\r', '\n':
			s.Enter()
		case 0x03, 0x04:
			return nil
		default:
			s.Key(ch)
		}
	}
}
