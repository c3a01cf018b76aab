package relay

import "strings"

// Action is the out-of-band result of feeding operator input to a LineFramer.
type Action int

const (
	// ActionNone indicates normal line extraction.
	ActionNone Action = iota
	// ActionBreak indicates the operator requested a break; the accumulated
	// buffer has been cleared and a single control byte should be sent to
	// the remote device instead of a text line.
	ActionBreak
	// ActionQuit indicates the operator requested the end of the session.
	ActionQuit
)

// BreakByte is the control byte sent to the remote device for a break
// request (ETX, Ctrl-C), bypassing normal line framing.
const BreakByte byte = 0x03

const (
	quitCommand  = "quit\r"
	breakCommand = "break\r"
)

// LineFramer accumulates decoded operator input into carriage-return
// terminated lines. Complete lines are returned with the terminator
// stripped; a partial trailing fragment is retained for the next feed.
//
// The reserved commands "quit" and "break" are recognized case-insensitively
// against the accumulated buffer before normal line extraction and are never
// relayed as lines; intercepting either clears the buffer.
//
// A LineFramer is not safe for concurrent use; the input worker owns one.
type LineFramer struct {
	buf string
}

// NewLineFramer creates an empty LineFramer.
func NewLineFramer() *LineFramer {
	return &LineFramer{}
}

// Feed appends decoded to the line buffer and extracts every complete line,
// in order. The returned action is ActionQuit or ActionBreak when a reserved
// command was intercepted; no lines are returned in that case.
func (f *LineFramer) Feed(decoded string) ([]string, Action) {
	f.buf += decoded

	lower := strings.ToLower(f.buf)
	if strings.Contains(lower, quitCommand) {
		f.buf = ""
		return nil, ActionQuit
	}
	if strings.Contains(lower, breakCommand) {
		f.buf = ""
		return nil, ActionBreak
	}

	var lines []string
	for {
		idx := strings.IndexByte(f.buf, '\r')
		if idx < 0 {
			break
		}
		lines = append(lines, f.buf[:idx])
		f.buf = f.buf[idx+1:]
	}

	return lines, ActionNone
}

// Buffered returns the partial trailing fragment not yet terminated by a
// carriage return. It never contains a terminator itself.
func (f *LineFramer) Buffered() string {
	return f.buf
}

// Reset clears the accumulated buffer.
func (f *LineFramer) Reset() {
	f.buf = ""
}
