package client

import (
	"fmt"
	"sync"
	"time"

	"wren/imap"
	"wren/parser"
)

// idleMaxDuration is the server-recommended ceiling for one IDLE span
// (RFC 2177 suggests breaking the idle at least every 29 minutes).
const idleMaxDuration = 29 * time.Minute

// IdleHandle controls an active IDLE. While it is live the session delivers
// unsolicited updates through the UpdateHandler and accepts no other
// commands; call Done to return to Selected.
type IdleHandle struct {
	s *Session

	mu       sync.Mutex
	p        *pendingCommand
	timer    *time.Timer
	finished bool
}

// Idle enters the IDLE state. The handle auto-cycles DONE + IDLE before the
// server's idle ceiling is reached so the connection never times out.
func (s *Session) Idle() (*IdleHandle, error) {
	if err := s.requireSelected("IDLE"); err != nil {
		return nil, err
	}
	if !s.cfg.Extensions.IDLE {
		return nil, fmt.Errorf("client: IDLE not enabled in config")
	}
	if !s.Capability("IDLE") {
		return nil, &imap.ProtocolError{Command: "IDLE", Status: "NO", Response: "server does not advertise IDLE"}
	}

	s.cmdMu.Lock() // held until Done; no other command may interleave
	h := &IdleHandle{s: s}
	if err := h.enter(); err != nil {
		s.cmdMu.Unlock()
		return nil, err
	}
	h.timer = time.AfterFunc(idleMaxDuration, h.recycle)
	return h, nil
}

// enter sends IDLE and waits for the continuation.
func (h *IdleHandle) enter() error {
	s := h.s
	p := &pendingCommand{
		tag:    s.allocTag(),
		name:   "IDLE",
		contCh: make(chan string, 1),
		doneCh: make(chan *parser.StatusResponse, 1),
	}
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	if err := s.write(p.tag + " IDLE\r\n"); err != nil {
		s.clearPending(p)
		s.closeWithError(err)
		return err
	}

	select {
	case <-p.contCh:
		h.p = p
		s.setState(StateIdling)
		return nil
	case st := <-p.doneCh:
		return s.statusError("IDLE", st)
	case <-s.closedCh:
		return s.closedError()
	}
}

// exit sends DONE and waits for the tagged OK.
func (h *IdleHandle) exit() error {
	s := h.s
	p := h.p
	h.p = nil

	if err := s.write("DONE\r\n"); err != nil {
		s.closeWithError(err)
		return err
	}
	if _, err := s.await(p, "IDLE", 0); err != nil {
		return err
	}
	s.setState(StateSelected)
	return nil
}

// recycle breaks and re-enters the idle before the server ceiling.
func (h *IdleHandle) recycle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return
	}
	if err := h.exit(); err != nil {
		h.finished = true
		h.s.emitError(err)
		h.s.cmdMu.Unlock()
		return
	}
	if err := h.enter(); err != nil {
		h.finished = true
		h.s.emitError(err)
		h.s.cmdMu.Unlock()
		return
	}
	h.timer.Reset(idleMaxDuration)
}

// Done ends the IDLE and returns the session to Selected.
func (h *IdleHandle) Done() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return nil
	}
	h.finished = true
	h.timer.Stop()
	err := h.exit()
	h.s.cmdMu.Unlock()
	return err
}
