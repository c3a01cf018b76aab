package session

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/belltown/termrelay/logger"
	"github.com/belltown/termrelay/relay"
)

// Worker task names; also the keys of the worker status registry.
const (
	taskRemoteReader = "remoteReader"
	taskRemoteWriter = "remoteWriter"
	taskInput        = "inputWorker"
)

// Session represents one relay session with a remote line-oriented device.
// It manages the remote TCP connection, the loopback side-channel for
// operator input, the worker goroutines, and the shutdown coordination
// between them.
type Session struct {
	pctx      context.Context
	ctx       context.Context
	ctxCancel context.CancelFunc
	cfg       *Config
	logger    logger.Logger

	conn          net.Conn     // remote device connection
	connMutex     sync.Mutex   // guards conn on close
	listener      net.Listener // side-channel listener
	listenerMutex sync.Mutex
	sideConn      net.Conn // accepted side-channel client
	sideConnMutex sync.Mutex

	display  *relay.Display
	traffic  *relay.TrafficLog
	outbound *relay.OutboundQueue
	taskMgr  *relay.TaskManager

	// reader-owned state
	reassembler    *relay.StreamReassembler
	displayErrStrk int
	// input-worker-owned state
	framer *relay.LineFramer

	// statusChan is the single-slot completion signal: only the first
	// worker's report is observed, later reports are dropped without
	// blocking.
	statusChan chan string
	// statuses records every worker's exit status, first write wins per
	// worker.
	statuses *xsync.MapOf[string, string]

	opened   atomic.Bool
	shutdown atomic.Bool

	metrics SessionMetrics
}

// NewSession creates a new Session with the given context and configuration.
// It initializes the sinks, the outbound queue, and the task manager.
// Returns an error if the configuration is invalid.
func NewSession(ctx context.Context, cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, relay.ErrConfigNil
	}

	s := &Session{
		pctx:        ctx,
		cfg:         cfg,
		logger:      cfg.logger,
		display:     relay.NewDisplay(cfg.displayWriter, cfg.displayLockTimeout, cfg.logger),
		traffic:     relay.NewTrafficLog(cfg.trafficWriter, cfg.logger),
		outbound:    relay.NewOutboundQueue(),
		taskMgr:     relay.NewTaskManager(ctx, cfg.logger),
		reassembler: relay.NewStreamReassembler(),
		framer:      relay.NewLineFramer(),
		statusChan:  make(chan string, 1),
		statuses:    xsync.NewMapOf[string, string](),
	}

	s.ctx, s.ctxCancel = context.WithCancel(ctx)
	s.traffic.SetErrorHook(s.metrics.incLogErrCount)

	return s, nil
}

// Open dials the remote device, binds the loopback side-channel listener on
// an ephemeral port, and starts the worker goroutines.
func (s *Session) Open() error {
	if !s.opened.CompareAndSwap(false, true) {
		return errors.New("session already opened")
	}

	if err := s.dialRemote(); err != nil {
		s.opened.Store(false)
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.closeRemoteConn()
		s.opened.Store(false)

		return err
	}

	s.listenerMutex.Lock()
	s.listener = listener
	s.listenerMutex.Unlock()

	s.logger.Info("side channel listening", "addr", listener.Addr().String())

	// The input worker starts first: it only produces into the queue and
	// does not rely on the other workers being up yet.
	if err := s.taskMgr.StartReceiver(taskInput, s.inputTask, s.closeSideConn, s.cfg.inputChunkSize); err != nil {
		s.teardown()
		return err
	}

	if err := s.taskMgr.Start(taskRemoteWriter, s.remoteWriterTask); err != nil {
		s.teardown()
		return err
	}

	// The remote reader starts last; once it is up it is the main writer to
	// the display.
	if err := s.taskMgr.StartReceiver(taskRemoteReader, s.remoteReaderTask, nil, s.cfg.readChunkSize); err != nil {
		s.teardown()
		return err
	}

	return nil
}

// Wait blocks until the first worker reports a terminal status, reports a
// non-empty status to the operator, and tears the session down. It does not
// wait for the other workers to acknowledge; they unblock via connection and
// listener closure.
//
// Wait returns nil for a clean shutdown and an error describing the cause
// otherwise.
func (s *Session) Wait() error {
	if !s.opened.Load() {
		return relay.ErrSessionNotOpened
	}

	var status string
	select {
	case status = <-s.statusChan:
	case <-s.pctx.Done():
		status = s.pctx.Err().Error()
	}

	// The coordinator is the only place user-facing termination messages
	// are emitted, so output from multiple failing workers never
	// interleaves.
	if status != "" {
		s.logger.Error("session terminated", "reason", status)
		_ = s.display.WriteLine("termrelay: " + status)
	}

	s.teardown()

	if status != "" {
		return errors.New(status)
	}

	return nil
}

// Close forces session teardown. A Wait in progress returns once teardown
// completes.
func (s *Session) Close() error {
	if !s.opened.Load() {
		return nil
	}

	s.reportStatus("session", "")
	s.teardown()

	return nil
}

// Break sends the out-of-band break control byte to the remote device,
// bypassing normal line framing. It preserves send order relative to pending
// operator input.
func (s *Session) Break() error {
	if !s.opened.Load() {
		return relay.ErrSessionNotOpened
	}
	if s.shutdown.Load() {
		return relay.ErrSessionClosed
	}

	s.outbound.Push([]byte{relay.BreakByte})
	s.metrics.incBreaksSent()

	return nil
}

// SideChannelAddr returns the address of the loopback side-channel listener,
// or the empty string before Open.
func (s *Session) SideChannelAddr() string {
	s.listenerMutex.Lock()
	defer s.listenerMutex.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Metrics returns the metrics associated with the session.
func (s *Session) Metrics() *SessionMetrics {
	return &s.metrics
}

// WorkerStatus returns the recorded exit status of the named worker and
// whether the worker has exited.
func (s *Session) WorkerStatus(name string) (string, bool) {
	return s.statuses.Load(name)
}

// GetLogger returns the logger associated with the session.
func (s *Session) GetLogger() logger.Logger {
	return s.logger
}

// reportStatus submits a worker's terminal status. Every report is recorded
// in the status registry, but only the first one reaches the coordinator;
// later reports are dropped without blocking.
func (s *Session) reportStatus(worker, status string) {
	s.statuses.LoadOrStore(worker, status)

	select {
	case s.statusChan <- status:
	default:
	}
}

func (s *Session) dialRemote() error {
	address := net.JoinHostPort(s.cfg.host, strconv.Itoa(s.cfg.port))
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	dialCtx, cancel := context.WithTimeout(s.ctx, s.cfg.connectTimeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		s.logger.Debug("failed to dial remote device", "error", err)
		return err
	}

	s.connMutex.Lock()
	s.conn = conn
	s.connMutex.Unlock()

	s.logger.Info("connected to remote device",
		"host", s.cfg.host,
		"port", s.cfg.port,
		"local_addr", conn.LocalAddr().String(),
		"remote_addr", conn.RemoteAddr().String(),
	)

	return nil
}

// teardown performs the actual closing process with the close timeout bound.
// It cancels the context, stops the task manager, closes the remote
// connection, side-channel listener and client, and the traffic log, and
// waits for all goroutines to terminate.
func (s *Session) teardown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		return
	}

	s.logger.Debug("start teardown process")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.closeTimeout)
	defer cancel()

	if s.ctxCancel != nil {
		s.ctxCancel()
	}

	s.taskMgr.Stop()
	s.outbound.Close()

	// closing the sockets unblocks workers parked in blocking receives
	s.closeRemoteConn()
	s.closeListener()
	s.closeSideConn()

	_ = s.traffic.Close()

	go func() {
		s.taskMgr.Wait()
		cancel()
	}()

	// wait all goroutines terminated
	<-ctx.Done()

	if errors.Is(ctx.Err(), context.Canceled) {
		s.logger.Debug("teardown success")
	} else {
		s.logger.Error("teardown timeout", "error", ctx.Err(), "timeout", s.cfg.closeTimeout)
	}
}

func (s *Session) closeRemoteConn() {
	s.connMutex.Lock()
	defer s.connMutex.Unlock()

	if s.conn == nil {
		return
	}

	if tcpConn, ok := s.conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0) // Set linger timeout to 0 to force close
	}

	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Error("failed to close remote connection", "error", err)
	}
}

func (s *Session) closeListener() {
	s.listenerMutex.Lock()
	defer s.listenerMutex.Unlock()

	if s.listener == nil {
		return
	}

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Error("failed to close side-channel listener", "error", err)
	}
}

func (s *Session) closeSideConn() {
	s.sideConnMutex.Lock()
	defer s.sideConnMutex.Unlock()

	if s.sideConn == nil {
		return
	}

	if err := s.sideConn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Error("failed to close side-channel client", "error", err)
	}
}

func (s *Session) setSideConn(conn net.Conn) {
	s.sideConnMutex.Lock()
	defer s.sideConnMutex.Unlock()

	s.sideConn = conn
}

func (s *Session) getSideConn() net.Conn {
	s.sideConnMutex.Lock()
	defer s.sideConnMutex.Unlock()

	return s.sideConn
}
