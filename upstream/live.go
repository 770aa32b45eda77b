package upstream

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultDialTimeout bounds the TCP connect plus the auth exchange.
const DefaultDialTimeout = 10 * time.Second

// GatewayForDataset derives the live gateway address for a dataset:
// the lowercased dataset with dots replaced by hyphens, under the vendor's
// gateway domain.
func GatewayForDataset(dataset string) string {
	host := strings.ReplaceAll(strings.ToLower(dataset), ".", "-")
	return host + ".lsg.databento.com:13000"
}

// LiveConfig configures one live gateway session.
type LiveConfig struct {
	// APIKey authenticates against the gateway's challenge.
	APIKey string

	// Dataset selects the gateway and the data universe.
	Dataset string

	// Gateway overrides the derived gateway address. Used by tests.
	Gateway string

	// DialTimeout bounds connect plus authentication.
	DialTimeout time.Duration
}

// LiveSession is a single-use TCP session to the live gateway. Sessions
// are constructed fresh per call, never pooled, and cannot be restarted
// after Close. Record reads stop at the caller's context deadline; the
// session enforces no duration of its own.
type LiveSession struct {
	conn net.Conn
	br   *bufio.Reader

	mu     sync.Mutex
	closed bool
}

// DialLive connects to the gateway and completes the challenge/response
// authentication. A rejected key surfaces as ErrAuthFailed, which the
// retry layer treats as fatal.
func DialLive(ctx context.Context, cfg LiveConfig) (*LiveSession, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Dataset) == "" {
		return nil, ErrMissingDataset
	}
	gateway := cfg.Gateway
	if gateway == "" {
		gateway = GatewayForDataset(cfg.Dataset)
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", gateway)
	if err != nil {
		return nil, fmt.Errorf("upstream: dial live gateway: %w", err)
	}

	s := &LiveSession{conn: conn, br: bufio.NewReader(conn)}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := s.authenticate(cfg); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Auth done; record reads are bounded by the caller, not the dial.
	_ = conn.SetDeadline(time.Time{})
	return s, nil
}

// authenticate reads the greeting until the CRAM challenge arrives, then
// answers it with the hashed key.
func (s *LiveSession) authenticate(cfg LiveConfig) error {
	var challenge string
	for {
		line, err := s.readLine()
		if err != nil {
			return fmt.Errorf("upstream: read gateway greeting: %w", err)
		}
		if c, ok := strings.CutPrefix(line, "cram="); ok {
			challenge = c
			break
		}
		// Version banner and similar greeting lines are informational.
	}

	reply := fmt.Sprintf("auth=%s|dataset=%s|encoding=json|ts_out=0\n",
		cramResponse(challenge, cfg.APIKey), cfg.Dataset)
	if _, err := s.conn.Write([]byte(reply)); err != nil {
		return fmt.Errorf("upstream: send auth: %w", err)
	}

	line, err := s.readLine()
	if err != nil {
		return fmt.Errorf("upstream: read auth reply: %w", err)
	}
	if !strings.HasPrefix(line, "success=1") {
		if msg, ok := fieldValue(line, "error"); ok {
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		}
		return ErrAuthFailed
	}
	return nil
}

// cramResponse hashes the challenge with the key and appends the key's
// bucket suffix, matching the gateway's expected reply shape.
func cramResponse(challenge, apiKey string) string {
	sum := sha256.Sum256([]byte(challenge + "|" + apiKey))
	bucket := apiKey
	if len(bucket) > 5 {
		bucket = bucket[len(bucket)-5:]
	}
	return hex.EncodeToString(sum[:]) + "-" + bucket
}

// Subscribe requests a schema for a set of symbols. Must be called before
// Start.
func (s *LiveSession) Subscribe(schema string, symbols []string, stypeIn string) error {
	if stypeIn == "" {
		stypeIn = "raw_symbol"
	}
	msg := fmt.Sprintf("schema=%s|stype_in=%s|symbols=%s\n",
		schema, stypeIn, strings.Join(symbols, ","))
	return s.write(msg)
}

// Start begins the record stream for all prior subscriptions.
func (s *LiveSession) Start() error {
	return s.write("start_session=1\n")
}

// Next returns the next record from the stream. Records arrive as JSON
// lines. Context deadline enforcement is the caller's job via SetDeadline
// on the dial context or by closing the session.
func (s *LiveSession) Next() (json.RawMessage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	line, err := s.readLine()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(line), nil
}

// SetReadDeadline bounds subsequent Next calls.
func (s *LiveSession) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Close shuts the session down. The session cannot be reused afterwards;
// callers needing another stream dial a new one.
func (s *LiveSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *LiveSession) write(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	_, err := s.conn.Write([]byte(msg))
	return err
}

func (s *LiveSession) readLine() (string, error) {
	line, err := s.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// fieldValue extracts one key=value field from a pipe-delimited control
// line.
func fieldValue(line, key string) (string, bool) {
	for _, part := range strings.Split(line, "|") {
		if v, ok := strings.CutPrefix(part, key+"="); ok {
			return v, true
		}
	}
	return "", false
}
