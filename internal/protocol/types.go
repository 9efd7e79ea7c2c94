package protocol

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrMalformed   = errors.New("malformed message")
	ErrLineTooLong = errors.New("line exceeds maximum size")
)

// MaxLineSize bounds a single encoded line, newline excluded.
const MaxLineSize = 64 * 1024

// Request is a message from a client. Exactly one variant is set.
type Request struct {
	Join *Join `json:"Join,omitempty"`
	Post *Post `json:"Post,omitempty"`
}

// Join asks the server to forward messages posted to Group.
type Join struct {
	Group string `json:"group"`
}

// Post publishes Message to Group.
type Post struct {
	Group   string `json:"group"`
	Message string `json:"message"`
}

// Reply is a message from the server to one client. Exactly one variant is set.
type Reply struct {
	Message *Message `json:"Message,omitempty"`
	Dropped *Dropped `json:"Dropped,omitempty"`
	Error   *Error   `json:"Error,omitempty"`
}

// Message was posted to Group, of which the receiving client is a member.
type Message struct {
	Group   string `json:"group"`
	Message string `json:"message"`
}

// Dropped reports how many messages were discarded because the client's
// outbound queue was full.
type Dropped struct {
	Count int `json:"count"`
}

// Error is sent to a client whose request could not be served.
type Error struct {
	Message string `json:"message"`
}

// NewJoin builds a Join request.
func NewJoin(group string) Request {
	return Request{Join: &Join{Group: group}}
}

// NewPost builds a Post request.
func NewPost(group, message string) Request {
	return Request{Post: &Post{Group: group, Message: message}}
}

// MessageReply builds a Message reply.
func MessageReply(group, message string) Reply {
	return Reply{Message: &Message{Group: group, Message: message}}
}

// DroppedReply builds a Dropped reply.
func DroppedReply(count int) Reply {
	return Reply{Dropped: &Dropped{Count: count}}
}

// ErrorReply builds an Error reply.
func ErrorReply(message string) Reply {
	return Reply{Error: &Error{Message: message}}
}

func (r Request) validate() error {
	switch {
	case r.Join != nil && r.Post == nil:
		if r.Join.Group == "" {
			return fmt.Errorf("%w: empty group name", ErrMalformed)
		}
		return nil
	case r.Post != nil && r.Join == nil:
		if r.Post.Group == "" {
			return fmt.Errorf("%w: empty group name", ErrMalformed)
		}
		return nil
	case r.Join == nil && r.Post == nil:
		return fmt.Errorf("%w: request has no variant", ErrMalformed)
	default:
		return fmt.Errorf("%w: request has more than one variant", ErrMalformed)
	}
}

func (r Reply) validate() error {
	n := 0
	if r.Message != nil {
		n++
	}
	if r.Dropped != nil {
		n++
	}
	if r.Error != nil {
		n++
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: reply has no variant", ErrMalformed)
	default:
		return fmt.Errorf("%w: reply has more than one variant", ErrMalformed)
	}
}

// String renders a request for logs.
func (r Request) String() string {
	switch {
	case r.Join != nil:
		return fmt.Sprintf("Join(%s)", r.Join.Group)
	case r.Post != nil:
		return fmt.Sprintf("Post(%s, %d bytes)", r.Post.Group, len(r.Post.Message))
	default:
		return "Request(empty)"
	}
}
