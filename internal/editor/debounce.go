package editor

import "time"

// Clock abstracts time so tests can drive the debounce timers by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of *time.Timer the editor needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// debouncer is a restartable single-shot timer. Each schedule or stop bumps
// the generation, and a callback only acts if claim accepts its generation,
// so a callback that lost the race with Stop can never fire late.
//
// Not safe for concurrent use; the owner calls every method under its lock.
type debouncer struct {
	clock Clock
	delay time.Duration
	timer Timer
	gen   uint64
	armed bool
}

func (d *debouncer) schedule(fire func(gen uint64)) {
	d.stop()
	d.gen++
	gen := d.gen
	d.armed = true
	d.timer = d.clock.AfterFunc(d.delay, func() { fire(gen) })
}

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armed = false
	d.gen++
}

// claim reports whether the callback scheduled with gen is still the live one,
// and disarms the debouncer if so.
func (d *debouncer) claim(gen uint64) bool {
	if !d.armed || gen != d.gen {
		return false
	}
	d.armed = false
	d.timer = nil
	return true
}

// pending reports whether a scheduled callback has yet to fire.
func (d *debouncer) pending() bool {
	return d.armed
}
