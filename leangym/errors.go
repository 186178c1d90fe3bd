package leangym

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidState rejects stepping an environment that has no running
// episode, either because Reset was never called or because the episode
// finished.
var ErrInvalidState = errors.New("episode finished; call Reset")

// LaunchError reports that the lean-gym process could not be started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch lean-gym at %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ChannelClosedError reports that the process exited mid-conversation.
// ExitCode is -1 when the process was killed.
type ChannelClosedError struct {
	ExitCode int
	Stderr   string
}

func (e *ChannelClosedError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("lean-gym process exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("lean-gym process exited with code %d: %s", e.ExitCode, e.Stderr)
}

// ProtocolError reports a reply line that could not be parsed as a JSON
// object. Line carries the raw text for diagnosis.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed lean-gym reply %q: %v", e.Line, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DeclarationNotFoundError reports that init_search was rejected for the
// requested declaration.
type DeclarationNotFoundError struct {
	Decl string
	Msg  string
}

func (e *DeclarationNotFoundError) Error() string {
	return fmt.Sprintf("declaration %q rejected by lean-gym: %s", e.Decl, e.Msg)
}

// TimeoutError reports that no reply arrived within the configured deadline.
// The process is killed when this is returned, since a partial read cannot be
// undone.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply from lean-gym within %s", e.After)
}
