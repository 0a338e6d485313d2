package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/vivah/internal/service/dto"
)

// Client frame types.
const (
	FrameMessage = "message"
	FrameTyping  = "typing"
	FrameRead    = "read"
	FramePing    = "ping"
)

// Server event types.
const (
	EventMessage     = "message"
	EventMessageAck  = "message_ack"
	EventRead        = "read"
	EventReadAck     = "read_ack"
	EventTyping      = "typing"
	EventPresence    = "presence"
	EventOnlineUsers = "online_users"
	EventPong        = "pong"
	EventError       = "error"
)

// Frame is one client-to-server message on the live channel.
type Frame struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId,omitempty"`
	To        string `json:"to,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Typing    bool   `json:"typing,omitempty"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is one server-to-client message on the live channel.
type Event struct {
	Type      string       `json:"type"`
	ClientID  string       `json:"clientId,omitempty"`
	UserID    string       `json:"userId,omitempty"`
	Online    *bool        `json:"online,omitempty"`
	From      string       `json:"from,omitempty"`
	Typing    *bool        `json:"typing,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
	ReadAt    *time.Time   `json:"readAt,omitempty"`
	Users     []string     `json:"users,omitempty"`
	Message   *dto.Message `json:"message,omitempty"`
	Error     *ErrorBody   `json:"error,omitempty"`
}

const defaultQueue = 64

// Session is one live connection of a member. Outgoing events are queued
// and drained by the connection's writer.
type Session struct {
	ID     string
	UserID string

	queue chan Event
	done  chan struct{}
	once  sync.Once
}

func NewSession(userID string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		queue:  make(chan Event, defaultQueue),
		done:   make(chan struct{}),
	}
}

// Events is drained by the connection writer.
func (s *Session) Events() <-chan Event { return s.queue }

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

// enqueue never blocks; a full queue or a closed session drops the event.
func (s *Session) enqueue(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- ev:
		return true
	default:
		return false
	}
}
