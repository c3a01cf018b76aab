package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/belltown/termrelay/relay"
)

// remoteReaderTask receives device output in fixed-size chunks, logs the raw
// bytes, reassembles UTF-8 across recv boundaries, and writes the rendered
// form to the display.
//
// An empty read, an I/O failure, or a persistent display failure ends the
// loop.
func (s *Session) remoteReaderTask(buf []byte) bool {
	n, err := s.conn.Read(buf)
	if err != nil {
		if isClosedErr(err) {
			s.reportStatus(taskRemoteReader, "remote connection closed")
		} else {
			s.reportStatus(taskRemoteReader, fmt.Sprintf("failed to receive from remote device: %v", err))
		}

		return false
	}

	if n == 0 {
		return true
	}
	chunk := buf[:n]

	s.metrics.addRemoteBytesRecv(n)

	// The traffic log gets the bytes exactly as received, never the
	// escaped display form.
	s.traffic.Write(chunk)

	safe := s.reassembler.Feed(chunk)
	s.metrics.setHeldbackBytes(s.reassembler.PendingSize())
	if len(safe) == 0 {
		return true
	}

	if err := s.display.Write(relay.Render(safe)); err != nil {
		s.metrics.incDisplayErrCount()
		s.displayErrStrk++

		// An isolated display failure is reported once and the relay keeps
		// running; a second consecutive failure is treated as worker-fatal.
		if s.displayErrStrk > 1 {
			s.reportStatus(taskRemoteReader, fmt.Sprintf("display write failed: %v", err))
			return false
		}

		s.logger.Warn("display write failed, continuing", "error", err)

		return true
	}
	s.displayErrStrk = 0

	return true
}

// remoteWriterTask pops one queued message and writes it to the remote
// connection, looping on partial sends until all bytes are accepted.
func (s *Session) remoteWriterTask() bool {
	msg, err := s.outbound.Pop(s.ctx)
	if err != nil {
		// queue closed or context canceled during teardown; a clean exit
		s.reportStatus(taskRemoteWriter, "")
		return false
	}

	for len(msg) > 0 {
		n, err := s.conn.Write(msg)
		if err != nil {
			s.reportStatus(taskRemoteWriter, fmt.Sprintf("failed to send to remote device: %v", err))
			return false
		}

		s.metrics.addRemoteBytesSent(n)
		msg = msg[n:]
	}

	return true
}

// inputTask accepts the single side-channel client on its first call, then
// receives operator keystroke lines, echoing complete lines to the display
// and pushing them onto the outbound queue.
//
// A closed side-channel or a quit command ends the loop.
func (s *Session) inputTask(buf []byte) bool {
	sideConn := s.getSideConn()
	if sideConn == nil {
		s.listenerMutex.Lock()
		listener := s.listener
		s.listenerMutex.Unlock()

		conn, err := listener.Accept()
		if err != nil {
			if isClosedErr(err) {
				s.reportStatus(taskInput, "")
			} else {
				s.reportStatus(taskInput, fmt.Sprintf("failed to accept operator input client: %v", err))
			}

			return false
		}

		s.setSideConn(conn)
		s.logger.Info("operator input channel connected", "remote_addr", conn.RemoteAddr().String())
		sideConn = conn
	}

	n, err := sideConn.Read(buf)
	if err != nil {
		if isClosedErr(err) {
			s.reportStatus(taskInput, "operator input channel closed")
		} else {
			s.reportStatus(taskInput, fmt.Sprintf("failed to receive operator input: %v", err))
		}

		return false
	}

	if n == 0 {
		return true
	}
	chunk := buf[:n]

	// Log the raw input bytes with one LF appended per chunk so command
	// lines stay readable in the binary log.
	logChunk := make([]byte, 0, n+1)
	logChunk = append(logChunk, chunk...)
	logChunk = append(logChunk, '\n')
	s.traffic.Write(logChunk)

	// Operator input is decoded permissively; invalid sequences are
	// replaced rather than failing.
	decoded := strings.ToValidUTF8(string(chunk), string(utf8.RuneError))

	lines, action := s.framer.Feed(decoded)
	switch action {
	case relay.ActionQuit:
		s.logger.Info("quit command received, ending session")
		s.reportStatus(taskInput, "")

		return false

	case relay.ActionBreak:
		_ = s.display.WriteLine("termrelay: breaking into remote")
		s.outbound.Push([]byte{relay.BreakByte})
		s.metrics.incBreaksSent()

		return true

	case relay.ActionNone:
	}

	for _, line := range lines {
		_ = s.display.WriteLine(line)
		s.outbound.Push([]byte(line + "\r\n"))
		s.metrics.incLinesRelayed()
	}

	return true
}

// isClosedErr reports whether err is an orderly end of stream rather than an
// unexpected failure: EOF, a socket closed by teardown, or a peer reset.
func isClosedErr(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	return strings.Contains(err.Error(), "connection reset by peer")
}
