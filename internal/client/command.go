package client

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rickgao/groupchat/internal/protocol"
)

// Errors
var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unrecognized command")
	ErrUsage          = errors.New("bad command usage")
)

// ParseCommand turns one input line into a request.
func ParseCommand(line string) (protocol.Request, error) {
	command, rest, ok := nextToken(line)
	if !ok {
		return protocol.Request{}, ErrEmptyCommand
	}

	switch command {
	case "join":
		group, rest, ok := nextToken(rest)
		if !ok || strings.TrimSpace(rest) != "" {
			return protocol.Request{}, fmt.Errorf("%w: join GROUP", ErrUsage)
		}
		return protocol.NewJoin(group), nil

	case "post":
		group, rest, ok := nextToken(rest)
		if !ok {
			return protocol.Request{}, fmt.Errorf("%w: post GROUP MESSAGE...", ErrUsage)
		}
		return protocol.NewPost(group, strings.TrimLeftFunc(rest, unicode.IsSpace)), nil

	default:
		return protocol.Request{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
}

// nextToken splits off the first run of non-space characters.
func nextToken(s string) (token, rest string, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", "", false
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], s[i:], true
	}
	return s, "", true
}

// FormatReply renders a reply for the terminal.
func FormatReply(reply protocol.Reply) string {
	switch {
	case reply.Message != nil:
		return fmt.Sprintf("message posted to %s: %s", reply.Message.Group, reply.Message.Message)
	case reply.Dropped != nil:
		return fmt.Sprintf("dropped %d messages", reply.Dropped.Count)
	case reply.Error != nil:
		return fmt.Sprintf("error from server: %s", reply.Error.Message)
	default:
		return "empty reply"
	}
}
