// Package barcode tells hardware barcode scanners apart from human typing.
//
// USB scanners emulate a keyboard and type a whole code in a burst, usually
// followed by Enter. The detector buffers printable keys while they arrive
// faster than MaxKeyInterval and emits the buffer once it is long enough.
package barcode

import (
	"time"
	"unicode"
)

// Default tuning values.
const (
	DefaultMaxKeyInterval = 50 * time.Millisecond
	DefaultMinLength      = 4

	// flushFactor scales MaxKeyInterval into the fallback flush delay used
	// when a scanner does not send a terminator.
	flushFactor = 3
)

// Config tunes the detector. Zero values select the defaults.
type Config struct {
	// MaxKeyInterval is the longest gap between two keys of one burst.
	MaxKeyInterval time.Duration
	// MinLength is the shortest buffer that counts as a scan.
	MinLength int
	// FlushAfter is how long after the last key the buffer is flushed
	// without an Enter. Defaults to three times MaxKeyInterval.
	FlushAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxKeyInterval <= 0 {
		c.MaxKeyInterval = DefaultMaxKeyInterval
	}
	if c.MinLength <= 0 {
		c.MinLength = DefaultMinLength
	}
	if c.FlushAfter <= 0 {
		c.FlushAfter = flushFactor * c.MaxKeyInterval
	}
	return c
}

// Field says which kind of input had keyboard focus when a key arrived.
type Field int

const (
	// FieldNone means no input was focused.
	FieldNone Field = iota
	// FieldText is an ordinary text input; its keys are never intercepted.
	FieldText
	// FieldScanner is an input explicitly designated as the scanner target.
	FieldScanner
)

// Event is one key press.
type Event struct {
	Rune  rune
	Enter bool
	At    time.Time
	Field Field
}

// Detector accumulates scanner bursts. It is not safe for concurrent use;
// the caller supplies the clock through Event.At and Expire.
type Detector struct {
	cfg      Config
	buf      []rune
	last     time.Time
	deadline time.Time
}

// NewDetector returns a detector with cfg applied over the defaults.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Feed processes one key event and returns a completed scan, if any.
//
// A pending fallback flush whose deadline is not after ev.At is applied
// first, so feeding events late gives the same result as a timer that
// fired on time.
func (d *Detector) Feed(ev Event) (string, bool) {
	code, ok := d.Expire(ev.At)

	if ev.Field == FieldText {
		return code, ok
	}

	if ev.Enter {
		if ok {
			return code, ok
		}
		return d.complete()
	}

	if !unicode.IsPrint(ev.Rune) {
		return code, ok
	}

	// A slow key means the previous buffer was typed by a human.
	if len(d.buf) > 0 && ev.At.Sub(d.last) > d.cfg.MaxKeyInterval {
		d.buf = d.buf[:0]
	}

	d.buf = append(d.buf, ev.Rune)
	d.last = ev.At
	d.deadline = ev.At.Add(d.cfg.FlushAfter)
	return code, ok
}

// Expire flushes the buffer if its fallback deadline has passed at now.
func (d *Detector) Expire(now time.Time) (string, bool) {
	if d.deadline.IsZero() || now.Before(d.deadline) {
		return "", false
	}
	return d.complete()
}

// Deadline returns when the fallback flush is due.
func (d *Detector) Deadline() (time.Time, bool) {
	return d.deadline, !d.deadline.IsZero()
}

// Pending returns the number of buffered runes.
func (d *Detector) Pending() int {
	return len(d.buf)
}

// Reset drops the buffer and any pending deadline.
func (d *Detector) Reset() {
	d.buf = d.buf[:0]
	d.last = time.Time{}
	d.deadline = time.Time{}
}

// complete emits the buffer if it is long enough and always clears it.
func (d *Detector) complete() (string, bool) {
	var code string
	ok := len(d.buf) >= d.cfg.MinLength
	if ok {
		code = string(d.buf)
	}
	d.Reset()
	return code, ok
}
