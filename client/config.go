package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"time"

	"wren/imap"
)

// TLSMode selects how the connection is secured.
type TLSMode string

const (
	TLSImplicit TLSMode = "implicit" // TLS from the first byte (port 993)
	TLSNone     TLSMode = "none"
	TLSStartTLS TLSMode = "starttls"
)

// TLSOptions is the trust and client-auth material for the TLS handshake.
type TLSOptions struct {
	RejectUnauthorized *bool // nil means true
	ServerName         string
	RootCAs            *x509.CertPool
	Certificates       []tls.Certificate
}

// XOAuth2 is an OAuth2 credential. Token acquisition happens elsewhere; the
// session only consumes the opaque access token.
type XOAuth2 struct {
	User        string
	AccessToken string
}

// Extensions opts in to optional protocol extensions.
type Extensions struct {
	IDLE      bool
	CondStore bool
	QResync   bool
}

// Config is the immutable connection configuration.
type Config struct {
	Host string
	Port int // 0 picks 993 for implicit TLS, 143 otherwise

	TLS        TLSMode // empty means implicit
	TLSOptions TLSOptions

	User     string
	Password string
	XOAuth2  *XOAuth2 // takes precedence over Password

	ConnTimeout time.Duration // TCP/TLS handshake budget, default 30s
	AuthTimeout time.Duration // auth command budget, default 30s

	Extensions Extensions

	// AllowCleartext permits password authentication without TLS. Debug
	// only; never set this against a real server.
	AllowCleartext bool

	// Updates receives unsolicited server notifications. Callbacks are
	// queued in server arrival order and run on a dedicated dispatcher
	// goroutine, never on the read goroutine, so they may call back into
	// the session.
	Updates *UpdateHandler

	// Logger receives protocol debug logging; nil discards it.
	Logger *slog.Logger
}

// UpdateHandler carries the observer callbacks for unsolicited updates.
type UpdateHandler struct {
	Mail    func(total uint32)      // EXISTS changed the message count
	Update  func(msg *imap.Message) // unsolicited FETCH, usually flag changes
	Expunge func(seqNum uint32)     // message removed; higher seqnums shift down
	Close   func(err error)         // session ended; nil on clean logout
	Error   func(err error)         // recoverable errors such as parse failures
}

func (c *Config) withDefaults() (Config, error) {
	cfg := *c
	if cfg.Host == "" {
		return cfg, fmt.Errorf("client: host is required")
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSImplicit
	}
	switch cfg.TLS {
	case TLSImplicit, TLSNone, TLSStartTLS:
	default:
		return cfg, fmt.Errorf("client: unknown tls mode %q", cfg.TLS)
	}
	if cfg.Port == 0 {
		if cfg.TLS == TLSImplicit {
			cfg.Port = 993
		} else {
			cfg.Port = 143
		}
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = 30 * time.Second
	}
	if cfg.XOAuth2 == nil && cfg.Password != "" && cfg.TLS == TLSNone && !cfg.AllowCleartext {
		return cfg, fmt.Errorf("client: refusing password auth without TLS (set AllowCleartext to override)")
	}
	return cfg, nil
}

// tlsConfig renders the crypto/tls configuration.
func (c *Config) tlsConfig() *tls.Config {
	tc := &tls.Config{
		ServerName:   c.TLSOptions.ServerName,
		RootCAs:      c.TLSOptions.RootCAs,
		Certificates: c.TLSOptions.Certificates,
	}
	if tc.ServerName == "" {
		tc.ServerName = c.Host
	}
	if c.TLSOptions.RejectUnauthorized != nil && !*c.TLSOptions.RejectUnauthorized {
		tc.InsecureSkipVerify = true
	}
	return tc
}
