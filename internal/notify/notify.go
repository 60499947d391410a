// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
)

// Severity of a notification.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notifier accepts a severity and a formatted message for display. Delivery
// failures are the notifier's own concern.
type Notifier interface {
	Notify(sev Severity, format string, args ...any)
}

// Func adapts a function to Notifier.
type Func func(sev Severity, msg string)

// Notify implements Notifier.
func (f Func) Notify(sev Severity, format string, args ...any) {
	f(sev, Format(format, args...))
}

// Format renders format with args. Without args the format is used verbatim
// so stray verbs in interpreter names survive.
func Format(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Discard drops every notification.
var Discard Notifier = Func(func(Severity, string) {})

// Log writes notifications to the apex logger.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(sev Severity, format string, args ...any) {
	msg := Format(format, args...)
	entry := log.WithField("notify", sev.String())
	switch sev {
	case Error:
		entry.Error(msg)
	case Warning:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}
}

// Note is one recorded notification.
type Note struct {
	Severity Severity
	Message  string
	Time     time.Time
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	notes []Note
}

// Notify implements Notifier.
func (r *Recorder) Notify(sev Severity, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{Severity: sev, Message: Format(format, args...), Time: time.Now()})
}

// Notes returns a copy of the recorded notifications.
func (r *Recorder) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Note(nil), r.notes...)
}

// Count returns how many notifications of sev were recorded.
func (r *Recorder) Count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Severity == sev {
			n++
		}
	}
	return n
}

// Reset drops all recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(sev Severity, format string, args ...any) {
	for _, n := range m {
		if n != nil {
			n.Notify(sev, format, args...)
		}
	}
}
