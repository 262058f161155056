package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KIND_REFRESH_FAILED  Kind = "refresh_failed"
	KIND_DELETE_FAILED   Kind = "delete_failed"
	KIND_GENERATE_FAILED Kind = "generate_failed"
	KIND_PUBLISHED       Kind = "published"
)

// Event is something worth knowing about a board after the fact
type Event struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Guild   string    `json:"guild"`
	Board   string    `json:"board"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
}

func New(guild string, board string, kind Kind, message string) Event {
	return Event{ID: uuid.NewString(), Time: time.Now().UTC(), Guild: guild, Board: board, Kind: kind, Message: message}
}

type Recorder interface {
	Record(event Event)
}

// Multi forwards every event to all its recorders
type Multi []Recorder

func (m Multi) Record(event Event) {
	for _, recorder := range m {
		if recorder != nil {
			recorder.Record(event)
		}
	}
}

// Log keeps the last events in memory
type Log struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

func NewLog(size int) *Log {
	if size <= 0 {
		size = 1
	}
	return &Log{events: make([]Event, size)}
}

func (l *Log) Record(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.next] = event
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns up to n events, newest first. n <= 0 means all of them
func (l *Log) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.next
	if l.full {
		count = len(l.events)
	}
	if n <= 0 || n > count {
		n = count
	}
	recent := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		index := (l.next - i + len(l.events)) % len(l.events)
		recent = append(recent, l.events[index])
	}
	return recent
}
