package tempmail

import (
	"fmt"
	"sync"
)

// Level is the severity of a Notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing status line produced by a session.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

func (n Notice) String() string {
	return fmt.Sprintf("[%s] %s", n.Level, n.Text)
}

// Notifier receives notices from a session. Notify runs on whichever
// goroutine did the work, possibly a polling timer, and never under the
// session lock, so it may read the session's Snapshot.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// NoticeLog collects notices in order. It is safe for concurrent use.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify appends n.
func (l *NoticeLog) Notify(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

// Notices returns a copy of everything collected so far.
func (l *NoticeLog) Notices() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}

// Texts returns the text of every collected notice.
func (l *NoticeLog) Texts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.notices))
	for _, n := range l.notices {
		out = append(out, n.Text)
	}
	return out
}
