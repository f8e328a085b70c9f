// Package client is the IMAP session engine: it owns the connection, frames
// and parses server responses, correlates tagged replies with pending
// commands and keeps the selected-mailbox snapshot current.
package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"wren/command"
	"wren/imap"
	"wren/parser"
	"wren/wire"
)

// State is the session connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateNotAuthenticated
	StateAuthenticated
	StateSelected
	StateIdling
	StateLoggingOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateNotAuthenticated:
		return "not-authenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateSelected:
		return "selected"
	case StateIdling:
		return "idling"
	case StateLoggingOut:
		return "logging-out"
	default:
		return "closed"
	}
}

// maxConsecutiveParseErrors closes the session when reached.
const maxConsecutiveParseErrors = 3

// readChunkSize is the per-read buffer handed to the framer.
const readChunkSize = 4096

// Session is one IMAP connection. Commands are serialized: each public
// method blocks until its tagged response arrives. Unsolicited updates are
// queued to the configured UpdateHandler in server arrival order, always
// ahead of the in-flight command's completion; callbacks run on a dedicated
// dispatcher goroutine, so they may call back into the session.
type Session struct {
	cfg    Config
	logger *slog.Logger

	wmu  sync.Mutex // guards conn writes
	conn net.Conn

	framer  *wire.Framer
	readBuf []byte
	events  *eventQueue

	cmdMu sync.Mutex // serializes commands; held for the whole IDLE span

	mu        sync.Mutex
	state     State
	caps      map[string]bool
	mailbox   *imap.Mailbox
	tagSeq    uint64
	pending   *pendingCommand
	parseErrs int
	closed    bool
	closeErr  error

	closedCh chan struct{}
	readDone chan struct{}
}

// pendingCommand is the single in-flight command.
type pendingCommand struct {
	tag    string
	name   string
	contCh chan string
	doneCh chan *parser.StatusResponse

	// collect receives every untagged response that arrives while the
	// command is in flight. It runs on the read goroutine.
	collect func(resp any)

	// onCont, when set, handles continuation requests instead of contCh
	// (AUTHENTICATE exchanges).
	onCont func(text string)
}

// Connect dials the server, performs the greeting, optional STARTTLS and
// authentication, and returns a ready session in the Authenticated state.
func Connect(cfg Config) (*Session, error) {
	full, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	s := newSession(full)
	if err := s.dial(); err != nil {
		s.events.close()
		return nil, err
	}
	return s.start()
}

// connectOn runs the session over an already-open connection.
func connectOn(conn net.Conn, cfg Config) (*Session, error) {
	full, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	s := newSession(full)
	s.conn = conn
	return s.start()
}

func newSession(full Config) *Session {
	s := &Session{
		cfg:      full,
		logger:   full.Logger,
		framer:   wire.NewFramer(),
		readBuf:  make([]byte, readChunkSize),
		events:   newEventQueue(),
		caps:     make(map[string]bool),
		state:    StateConnecting,
		closedCh: make(chan struct{}),
		readDone: make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	go s.events.run()
	return s
}

// start runs the greeting, STARTTLS and authentication over s.conn.
func (s *Session) start() (*Session, error) {
	if err := s.bootstrap(); err != nil {
		s.closeWithError(err)
		return nil, err
	}

	go s.readLoop()

	if err := s.authenticate(); err != nil {
		s.closeWithError(err)
		return nil, err
	}

	return s, nil
}

// dial opens the TCP or implicit-TLS connection within ConnTimeout.
func (s *Session) dial() error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.ConnTimeout}

	var conn net.Conn
	var err error
	if s.cfg.TLS == TLSImplicit {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, s.cfg.tlsConfig())
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: err}
	}
	s.conn = conn
	return nil
}

// bootstrap runs the synchronous pre-loop phase: greeting, capabilities and
// the STARTTLS upgrade.
func (s *Session) bootstrap() error {
	deadline := time.Now().Add(s.cfg.ConnTimeout)
	s.conn.SetReadDeadline(deadline)
	defer func() { s.conn.SetReadDeadline(time.Time{}) }()

	greeting, err := s.readResponseSync()
	if err != nil {
		return err
	}
	st, ok := greeting.(*parser.StatusResponse)
	if !ok || st.Tag != "" {
		return &imap.ParseError{Raw: fmt.Sprintf("%v", greeting), Err: fmt.Errorf("unexpected greeting")}
	}
	switch st.Status {
	case parser.StatusOK:
		s.state = StateNotAuthenticated
	case parser.StatusPreauth:
		s.state = StateAuthenticated
	default:
		s.state = StateClosed
		return &imap.ProtocolError{Command: "greeting", Status: string(st.Status), Response: st.Text}
	}
	if st.Code != nil && st.Code.Name == "CAPABILITY" {
		s.setCaps(st.Code.Caps)
	}

	if len(s.caps) == 0 {
		if err := s.syncCapability(); err != nil {
			return err
		}
	}

	if s.cfg.TLS == TLSStartTLS {
		if err := s.startTLS(deadline); err != nil {
			return err
		}
	}

	return nil
}

// startTLS upgrades the connection. The server sends nothing between its
// tagged OK and the handshake, so the upgrade happens outside the read loop.
func (s *Session) startTLS(deadline time.Time) error {
	if !s.caps["STARTTLS"] {
		return &imap.ProtocolError{Command: "STARTTLS", Status: "NO", Response: "server does not advertise STARTTLS"}
	}

	st, _, err := s.syncExchange(command.StartTLS())
	if err != nil {
		return err
	}
	if st.Status != parser.StatusOK {
		return &imap.ProtocolError{Command: "STARTTLS", Status: string(st.Status), Response: st.Text}
	}

	tlsConn := tls.Client(s.conn, s.cfg.tlsConfig())
	tlsConn.SetDeadline(deadline)
	if err := tlsConn.Handshake(); err != nil {
		return &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: err}
	}
	tlsConn.SetDeadline(time.Time{})
	tlsConn.SetReadDeadline(deadline)
	s.conn = tlsConn

	// Capabilities may change across the upgrade.
	s.caps = make(map[string]bool)
	return s.syncCapability()
}

// syncCapability runs CAPABILITY during bootstrap.
func (s *Session) syncCapability() error {
	st, untagged, err := s.syncExchange(command.Capability())
	if err != nil {
		return err
	}
	if st.Status != parser.StatusOK {
		return &imap.ProtocolError{Command: "CAPABILITY", Status: string(st.Status), Response: st.Text}
	}
	for _, resp := range untagged {
		if c, ok := resp.(*parser.CapabilityResponse); ok {
			s.setCaps(c.Caps)
		}
	}
	return nil
}

// syncExchange writes a simple command and reads until its tagged response.
// Only used before the read loop starts.
func (s *Session) syncExchange(cmd command.Command) (*parser.StatusResponse, []any, error) {
	tag := s.allocTag()
	if err := s.write(tag + " " + cmd.Text() + "\r\n"); err != nil {
		return nil, nil, err
	}

	var untagged []any
	for {
		resp, err := s.readResponseSync()
		if err != nil {
			return nil, nil, err
		}
		if st, ok := resp.(*parser.StatusResponse); ok && st.Tag == tag {
			return st, untagged, nil
		}
		untagged = append(untagged, resp)
	}
}

// readResponseSync reads and parses one logical line synchronously.
func (s *Session) readResponseSync() (any, error) {
	for {
		line, err := s.framer.Next()
		if err == nil {
			s.logger.Debug("recv", "line", line.Text)
			return parser.Parse(line)
		}
		if err != wire.ErrNeedMore {
			return nil, &imap.ParseError{Raw: "", Err: err}
		}
		n, err := s.conn.Read(s.readBuf)
		if n > 0 {
			s.framer.Append(s.readBuf[:n])
			continue
		}
		if err != nil {
			return nil, &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: err}
		}
	}
}

// write sends raw bytes on the socket.
func (s *Session) write(data string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.logger.Debug("send", "data", strings.TrimSuffix(data, "\r\n"))
	if _, err := s.conn.Write([]byte(data)); err != nil {
		return &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: err}
	}
	return nil
}

func (s *Session) writeBytes(data []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.conn.Write(data); err != nil {
		return &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: err}
	}
	return nil
}

// allocTag returns the next command tag (A0001, A0002, ...).
func (s *Session) allocTag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagSeq++
	return fmt.Sprintf("A%04d", s.tagSeq)
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	if st != StateSelected && st != StateIdling {
		s.mailbox = nil
	}
	s.mu.Unlock()
}

// Capability reports whether the server advertised the given capability.
func (s *Session) Capability(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps[strings.ToUpper(name)]
}

func (s *Session) setCaps(caps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = make(map[string]bool, len(caps))
	for _, c := range caps {
		s.caps[strings.ToUpper(c)] = true
	}
}

// Mailbox returns a copy of the selected mailbox snapshot, or nil.
func (s *Session) Mailbox() *imap.Mailbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mailbox == nil {
		return nil
	}
	return s.mailbox.Clone()
}

// readLoop reads server responses until the connection fails or closes.
func (s *Session) readLoop() {
	defer close(s.readDone)
	for {
		line, err := s.nextLine()
		if err != nil {
			s.mu.Lock()
			loggingOut := s.state == StateLoggingOut || s.closed
			s.mu.Unlock()
			if loggingOut {
				s.closeWithError(nil)
			} else {
				s.closeWithError(err)
			}
			return
		}
		s.handleLine(line)
	}
}

// nextLine blocks until a full logical line is framed.
func (s *Session) nextLine() (*wire.Line, error) {
	for {
		line, err := s.framer.Next()
		if err == nil {
			return line, nil
		}
		if err != wire.ErrNeedMore {
			return nil, &imap.ParseError{Err: err}
		}
		n, rerr := s.conn.Read(s.readBuf)
		if n > 0 {
			s.framer.Append(s.readBuf[:n])
			continue
		}
		if rerr != nil {
			s.framer.Close()
			if _, ferr := s.framer.Next(); ferr != nil && ferr != wire.ErrNeedMore {
				return nil, &imap.ParseError{Err: ferr}
			}
			return nil, &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: rerr}
		}
	}
}

// handleLine parses and dispatches one logical line.
func (s *Session) handleLine(line *wire.Line) {
	s.logger.Debug("recv", "line", line.Text)

	resp, err := parser.Parse(line)
	if err != nil {
		perr := &imap.ParseError{Raw: line.Text, Err: err}
		s.emitError(perr)

		s.mu.Lock()
		s.parseErrs++
		fatal := s.parseErrs >= maxConsecutiveParseErrors
		s.mu.Unlock()
		if fatal {
			s.closeWithError(perr)
		}
		return
	}

	s.mu.Lock()
	s.parseErrs = 0
	pending := s.pending
	s.mu.Unlock()

	switch r := resp.(type) {
	case *parser.ContinuationRequest:
		if pending == nil {
			s.emitError(&imap.ParseError{Raw: line.Text, Err: fmt.Errorf("continuation without pending command")})
			return
		}
		if pending.onCont != nil {
			pending.onCont(r.Text)
			return
		}
		select {
		case pending.contCh <- r.Text:
		default:
		}

	case *parser.StatusResponse:
		if r.Tag == "" {
			s.handleUntaggedStatus(r, pending)
			return
		}
		if pending == nil || pending.tag != r.Tag {
			s.emitError(&imap.ParseError{Raw: line.Text, Err: fmt.Errorf("tagged response for unknown tag %s", r.Tag)})
			return
		}
		if r.Code != nil && r.Code.Name == "CAPABILITY" {
			s.setCaps(r.Code.Caps)
		}
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		pending.doneCh <- r

	default:
		s.handleUntaggedData(resp, pending)
	}
}

// handleUntaggedStatus applies untagged OK/NO/BAD/BYE lines.
func (s *Session) handleUntaggedStatus(r *parser.StatusResponse, pending *pendingCommand) {
	if r.Status == parser.StatusBye {
		s.mu.Lock()
		if s.state != StateClosed {
			s.state = StateLoggingOut
		}
		s.mu.Unlock()
		if pending != nil && pending.collect != nil {
			pending.collect(r)
		}
		return
	}

	if r.Code != nil {
		switch r.Code.Name {
		case "CAPABILITY":
			s.setCaps(r.Code.Caps)
		case "UIDVALIDITY", "UIDNEXT", "UNSEEN", "PERMANENTFLAGS", "HIGHESTMODSEQ", "READ-ONLY", "READ-WRITE":
			s.applyMailboxCode(r.Code)
		}
	}

	if pending != nil && pending.collect != nil {
		pending.collect(r)
	}
}

// applyMailboxCode folds a status code into the selected snapshot.
func (s *Session) applyMailboxCode(code *parser.RespCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mailbox == nil {
		return
	}
	switch code.Name {
	case "UIDVALIDITY":
		s.mailbox.UIDValidity = code.Num
	case "UIDNEXT":
		s.mailbox.UIDNext = code.Num
	case "UNSEEN":
		s.mailbox.Messages.Unseen = code.Num
	case "PERMANENTFLAGS":
		s.mailbox.PermanentFlags = code.Flags
	case "HIGHESTMODSEQ":
		s.mailbox.HighestModSeq = code.ModSeq
	case "READ-ONLY":
		s.mailbox.ReadOnly = true
	case "READ-WRITE":
		s.mailbox.ReadOnly = false
	}
}

// handleUntaggedData applies data responses to the snapshot, queues the
// observer notifications and forwards to the pending collector. Events are
// enqueued before the in-flight command can complete.
func (s *Session) handleUntaggedData(resp any, pending *pendingCommand) {
	switch r := resp.(type) {
	case *parser.ExistsResponse:
		s.mu.Lock()
		selected := s.mailbox != nil
		if selected {
			s.mailbox.Messages.Total = r.Count
		}
		s.mu.Unlock()
		// During SELECT the count is part of the aggregation, not new mail.
		if selected {
			s.emitMail(r.Count)
		}

	case *parser.RecentResponse:
		s.mu.Lock()
		if s.mailbox != nil {
			s.mailbox.Messages.Recent = r.Count
		}
		s.mu.Unlock()

	case *parser.ExpungeResponse:
		s.mu.Lock()
		if s.mailbox != nil && s.mailbox.Messages.Total > 0 {
			s.mailbox.Messages.Total--
		}
		s.mu.Unlock()
		s.emitExpunge(r.SeqNum)

	case *parser.FlagsResponse:
		s.mu.Lock()
		if s.mailbox != nil {
			s.mailbox.Flags = r.Flags
		}
		s.mu.Unlock()

	case *parser.CapabilityResponse:
		s.setCaps(r.Caps)

	case *parser.FetchResponse:
		if pending == nil || pending.collect == nil {
			// Unsolicited flag update from another session.
			msg := r.Message
			s.emitUpdate(&msg)
			return
		}
	}

	if pending != nil && pending.collect != nil {
		pending.collect(resp)
	}
}

// execute sends a command and blocks until its tagged response. A zero
// timeout waits indefinitely. NO becomes a ProtocolError with the session
// state unchanged; BAD additionally closes the session.
func (s *Session) execute(name string, cmd command.Command, collect func(any), timeout time.Duration) (*parser.StatusResponse, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.executeLocked(name, cmd, collect, timeout)
}

// executeLocked is execute with cmdMu already held (IDLE cycling).
func (s *Session) executeLocked(name string, cmd command.Command, collect func(any), timeout time.Duration) (*parser.StatusResponse, error) {
	s.mu.Lock()
	if s.closed {
		err := s.closeErr
		s.mu.Unlock()
		if err == nil {
			err = &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: net.ErrClosed}
		}
		return nil, err
	}
	s.mu.Unlock()

	p := &pendingCommand{
		tag:     s.allocTag(),
		name:    name,
		contCh:  make(chan string, 1),
		doneCh:  make(chan *parser.StatusResponse, 1),
		collect: collect,
	}
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	if err := s.writeCommand(p, cmd, timeout); err != nil {
		s.clearPending(p)
		return nil, err
	}

	return s.await(p, name, timeout)
}

// writeCommand sends the command segments, waiting for continuations before
// each literal (or none with LITERAL+).
func (s *Session) writeCommand(p *pendingCommand, cmd command.Command, timeout time.Duration) error {
	literalPlus := s.Capability("LITERAL+")

	for i, seg := range cmd.Segments {
		if i == 0 {
			seg = p.tag + " " + seg
		}
		hasLiteral := i < len(cmd.Literals)
		if hasLiteral && literalPlus {
			seg = seg[:len(seg)-1] + "+}"
		}
		if err := s.write(seg + "\r\n"); err != nil {
			s.closeWithError(err)
			return err
		}
		if !hasLiteral {
			break
		}
		if !literalPlus {
			if err := s.awaitContinuation(p, timeout); err != nil {
				return err
			}
		}
		if err := s.writeBytes(cmd.Literals[i]); err != nil {
			s.closeWithError(err)
			return err
		}
	}
	return nil
}

// awaitContinuation blocks until the server requests the next literal.
func (s *Session) awaitContinuation(p *pendingCommand, timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-p.contCh:
		return nil
	case st := <-p.doneCh:
		// The server rejected the command before the literal.
		return s.statusError(p.name, st)
	case <-s.closedCh:
		return s.closedError()
	case <-timer:
		terr := &imap.TimeoutError{Op: p.name, Duration: timeout}
		s.closeWithError(terr)
		return terr
	}
}

// await blocks until the tagged response.
func (s *Session) await(p *pendingCommand, name string, timeout time.Duration) (*parser.StatusResponse, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case st := <-p.doneCh:
		if err := s.statusError(name, st); err != nil {
			return st, err
		}
		return st, nil
	case <-s.closedCh:
		return nil, s.closedError()
	case <-timer:
		terr := &imap.TimeoutError{Op: name, Duration: timeout}
		s.closeWithError(terr)
		return nil, terr
	}
}

// statusError maps NO and BAD to errors. BAD is treated as a protocol bug
// and closes the session.
func (s *Session) statusError(name string, st *parser.StatusResponse) error {
	switch st.Status {
	case parser.StatusOK:
		return nil
	case parser.StatusNo:
		perr := &imap.ProtocolError{Command: name, Status: "NO", Response: st.Text}
		if st.Code != nil {
			perr.Code = st.Code.Name
		}
		return perr
	default:
		perr := &imap.ProtocolError{Command: name, Status: string(st.Status), Response: st.Text}
		s.closeWithError(perr)
		return perr
	}
}

func (s *Session) clearPending(p *pendingCommand) {
	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
	}
	s.mu.Unlock()
}

func (s *Session) closedError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	return &imap.NetworkError{Host: s.cfg.Host, Port: s.cfg.Port, Err: net.ErrClosed}
}

// closeWithError tears the session down. Every outstanding command fails
// with err; a nil err is a clean shutdown.
func (s *Session) closeWithError(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	s.state = StateClosed
	s.mailbox = nil
	s.pending = nil
	s.mu.Unlock()

	// Waiters unblock through closedCh and pick up closeErr.
	close(s.closedCh)
	s.conn.Close()

	// Close is the final event; the dispatcher drains the queue and exits.
	s.emitClose(err)
	s.events.close()
}

// End logs out gracefully. A force-close fallback fires one second after the
// logout starts in case the server never answers.
func (s *Session) End() error {
	s.setState(StateLoggingOut)

	force := time.AfterFunc(time.Second, func() {
		s.closeWithError(nil)
	})
	defer force.Stop()

	_, err := s.execute("LOGOUT", command.Logout(), nil, 0)
	s.closeWithError(nil)
	if err != nil {
		// BYE + connection close during logout is the expected path.
		var nerr *imap.NetworkError
		if errors.As(err, &nerr) {
			return nil
		}
	}
	return err
}

// Noop sends NOOP, giving the server a chance to push pending updates.
func (s *Session) Noop() error {
	_, err := s.execute("NOOP", command.Noop(), nil, 0)
	return err
}

// Check requests a server-side checkpoint of the selected mailbox.
func (s *Session) Check() error {
	if err := s.requireSelected("CHECK"); err != nil {
		return err
	}
	_, err := s.execute("CHECK", command.Check(), nil, 0)
	return err
}

// ID sends the RFC 2971 client identification and returns the server's.
func (s *Session) ID(fields map[string]string) (map[string]string, error) {
	server := make(map[string]string)
	_, err := s.execute("ID", command.ID(fields), func(resp any) {
		if r, ok := resp.(*parser.IDResponse); ok {
			for k, v := range r.Fields {
				server[k] = v
			}
		}
	}, 0)
	return server, err
}
