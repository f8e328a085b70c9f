package client

import (
	"encoding/json"
	"fmt"

	"wren/codec"
	"wren/command"
	"wren/imap"
	"wren/parser"
)

// authenticate picks the strongest mechanism the server and configuration
// share: XOAUTH2 when a token is supplied, PLAIN over TLS, LOGIN otherwise.
func (s *Session) authenticate() error {
	if s.State() == StateAuthenticated {
		// PREAUTH greeting.
		return nil
	}

	var err error
	switch {
	case s.cfg.XOAuth2 != nil:
		err = s.authXOAuth2()
	case s.Capability("AUTH=PLAIN") && s.tlsActive():
		err = s.authPlain()
	default:
		err = s.authLogin()
	}
	if err != nil {
		return err
	}

	s.setState(StateAuthenticated)

	if s.cfg.Extensions.QResync && s.Capability("QRESYNC") && s.Capability("ENABLE") {
		if _, eerr := s.execute("ENABLE", command.Enable("QRESYNC", "CONDSTORE"), nil, s.cfg.AuthTimeout); eerr != nil {
			return eerr
		}
	}

	if !s.hasAnyCap() {
		// Capabilities reset across authentication on some servers.
		if _, cerr := s.execute("CAPABILITY", command.Capability(), func(resp any) {
			if c, ok := resp.(*parser.CapabilityResponse); ok {
				s.setCaps(c.Caps)
			}
		}, s.cfg.AuthTimeout); cerr != nil {
			return cerr
		}
	}
	return nil
}

func (s *Session) tlsActive() bool {
	return s.cfg.TLS == TLSImplicit || s.cfg.TLS == TLSStartTLS
}

func (s *Session) hasAnyCap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.caps) > 0
}

// authXOAuth2 runs AUTHENTICATE XOAUTH2 with the SASL token
// user=<u>\x01auth=Bearer <t>\x01\x01. A continuation after the token
// carries a base64 JSON error; the client answers it with an empty line and
// the tagged NO follows.
func (s *Session) authXOAuth2() error {
	if !s.Capability("AUTH=XOAUTH2") {
		return &imap.AuthenticationError{ProtocolError: imap.ProtocolError{
			Command: "AUTHENTICATE", Status: "NO",
			Response: "server does not advertise AUTH=XOAUTH2",
		}}
	}

	cred := s.cfg.XOAuth2
	raw := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", cred.User, cred.AccessToken)
	token := codec.EncodeBase64([]byte(raw))

	saslIR := s.Capability("SASL-IR")
	cmd := command.Authenticate("XOAUTH2", token, saslIR)

	var serverErr string
	sent := saslIR

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	p := &pendingCommand{
		tag:    s.allocTag(),
		name:   "AUTHENTICATE",
		contCh: make(chan string, 1),
		doneCh: make(chan *parser.StatusResponse, 1),
	}
	p.onCont = func(text string) {
		if !sent {
			sent = true
			s.write(token + "\r\n")
			return
		}
		// Error continuation: decode the JSON detail, then answer with an
		// empty line so the server finishes with a tagged NO.
		if dec, err := codec.DecodeBase64(text); err == nil {
			serverErr = decodeOAuthError(dec)
		}
		s.write("\r\n")
	}

	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	if err := s.write(p.tag + " " + cmd.Text() + "\r\n"); err != nil {
		s.clearPending(p)
		s.closeWithError(err)
		return err
	}

	st, err := s.await(p, "AUTHENTICATE", s.cfg.AuthTimeout)
	if err != nil {
		resp := err.Error()
		if serverErr != "" {
			resp = serverErr
		} else if st != nil {
			resp = st.Text
		}
		return &imap.AuthenticationError{ProtocolError: imap.ProtocolError{
			Command: "AUTHENTICATE", Status: statusOf(st), Response: resp,
		}}
	}
	return nil
}

// authPlain runs AUTHENTICATE PLAIN with the NUL-joined identity.
func (s *Session) authPlain() error {
	raw := "\x00" + s.cfg.User + "\x00" + s.cfg.Password
	initial := codec.EncodeBase64([]byte(raw))
	saslIR := s.Capability("SASL-IR")
	cmd := command.Authenticate("PLAIN", initial, saslIR)

	if saslIR {
		_, err := s.execute("AUTHENTICATE", cmd, nil, s.cfg.AuthTimeout)
		return wrapAuthErr(err)
	}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	p := &pendingCommand{
		tag:    s.allocTag(),
		name:   "AUTHENTICATE",
		contCh: make(chan string, 1),
		doneCh: make(chan *parser.StatusResponse, 1),
	}
	p.onCont = func(string) {
		s.write(initial + "\r\n")
	}

	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	if err := s.write(p.tag + " " + cmd.Text() + "\r\n"); err != nil {
		s.clearPending(p)
		s.closeWithError(err)
		return err
	}
	_, err := s.await(p, "AUTHENTICATE", s.cfg.AuthTimeout)
	return wrapAuthErr(err)
}

// authLogin falls back to the LOGIN command.
func (s *Session) authLogin() error {
	if s.Capability("LOGINDISABLED") {
		return &imap.AuthenticationError{ProtocolError: imap.ProtocolError{
			Command: "LOGIN", Status: "NO", Response: "server has LOGIN disabled",
		}}
	}
	_, err := s.execute("LOGIN", command.Login(s.cfg.User, s.cfg.Password), nil, s.cfg.AuthTimeout)
	return wrapAuthErr(err)
}

func wrapAuthErr(err error) error {
	if err == nil {
		return nil
	}
	if perr, ok := err.(*imap.ProtocolError); ok {
		return &imap.AuthenticationError{ProtocolError: *perr}
	}
	return err
}

func statusOf(st *parser.StatusResponse) string {
	if st == nil {
		return "NO"
	}
	return string(st.Status)
}

// decodeOAuthError extracts a readable message from the XOAUTH2 error JSON.
func decodeOAuthError(raw []byte) string {
	var fields struct {
		Status  string `json:"status"`
		Schemes string `json:"schemes"`
		Scope   string `json:"scope"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil || fields.Status == "" {
		return string(raw)
	}
	return fmt.Sprintf("status %s (scope %s)", fields.Status, fields.Scope)
}
