package protocol

import (
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Config wires one shard onto the hub.
type Config struct {
	Shard   string // our name on the hub
	URL     string
	Reconn  uint // seconds between reconnect attempts
	Timeout time.Duration
	EmitOut func(*Message) // unsolicited messages land here
}

// Protocol speaks the hub's line format: single-line colon-separated
// TO:VERB:NOUN:ARGS...:FROM frames over a websocket.
type Protocol struct {
	ws *WebSocket

	shard string

	waiterMu sync.Mutex
	waiter   chan *Message

	emitOut func(*Message)
}

func NewProtocol(cfg Config) (*Protocol, error) {
	ws, err := NewWebSocket(cfg.URL, cfg.Reconn, cfg.Timeout)
	if err != nil {
		log.Error("Failed to init ws connection")
		return nil, err
	}

	return &Protocol{
		shard:   cfg.Shard,
		ws:      ws,
		emitOut: cfg.EmitOut,
	}, nil
}

func (ptcl *Protocol) EmitOut(f func(*Message)) {
	ptcl.emitOut = f
}

// TransmitReceive sends one frame and blocks for the next frame
// addressed to us.
func (ptcl *Protocol) TransmitReceive(v any) (*Message, error) {
	if err := ptcl.Transmit(v); err != nil {
		return nil, err
	}
	return ptcl.Receive(), nil
}

func (ptcl *Protocol) Transmit(v any) error {
	var msg string

	switch m := v.(type) {
	case Message:
		m.From = ptcl.shard
		msg = m.String()
	case string:
		msg = fmt.Sprintf("%s:%s", m, ptcl.shard)
	case []string:
		msg = fmt.Sprintf("%s:%s", strings.Join(m, ":"), ptcl.shard)
	default:
		log.Error("Provided unsupported type")
		return fmt.Errorf("unsupported message type %T", v)
	}

	err := ptcl.ws.Write([]byte(msg))
	if err != nil {
		log.Error("Failed to transmit", "msg", msg, "err", err)
	}
	return err
}

func (ptcl *Protocol) Receive() *Message {
	w := ptcl.installWaiter()
	defer ptcl.clearWaiter()

	resp := <-w
	return resp
}

// Run pumps the websocket until the process exits, reconnecting on
// close. Call it from its own goroutine.
func (ptcl *Protocol) Run() {
	for {
		in := ptcl.ws.Read()
		switch in.kind {
		case connClosed:
			log.Warn("Trying to reconnect on", "url", ptcl.ws.url)
			ptcl.ws.TryReconn()
			log.Info("Successfully reconnected")

		case readFailed:
			log.Error("Failed to read", "err", in.err)

		case readOK:
			if !ptcl.forUs(in.msg) {
				continue
			}

			msg, err := Parse(string(in.msg))
			if err != nil {
				log.Warn("Failed to parse", "msg", string(in.msg), "err", err)
				continue
			}

			if w := ptcl.currentWaiter(); w != nil {
				w <- msg
			} else if ptcl.emitOut != nil {
				ptcl.emitOut(msg)
			}
		}
	}
}

func (ptcl *Protocol) installWaiter() chan *Message {
	ptcl.waiterMu.Lock()
	defer ptcl.waiterMu.Unlock()
	ptcl.waiter = make(chan *Message, 1)
	return ptcl.waiter
}

func (ptcl *Protocol) clearWaiter() {
	ptcl.waiterMu.Lock()
	defer ptcl.waiterMu.Unlock()
	if ptcl.waiter != nil {
		close(ptcl.waiter)
		ptcl.waiter = nil
	}
}

func (ptcl *Protocol) currentWaiter() chan *Message {
	ptcl.waiterMu.Lock()
	defer ptcl.waiterMu.Unlock()
	return ptcl.waiter
}

func (ptcl *Protocol) forUs(msg []byte) bool {
	return strings.Split(string(msg), ":")[0] == ptcl.shard
}

// Parse validates one hub line. Frames are single-line; whitespace
// anywhere is a protocol violation.
func Parse(line string) (*Message, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, errors.New("empty message")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return nil, fmt.Errorf("invalid whitespace present")
	}
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("too few fields: got %d, want >= 4", len(parts))
	}

	to := parts[0]
	verb := parts[1]
	noun := parts[2]
	from := parts[len(parts)-1]
	args := append([]string(nil), parts[3:len(parts)-1]...)

	if !isToken(to) && !isHexID(to) && to != "ALL" {
		return nil, fmt.Errorf("invalid TO token: %q", to)
	}
	if !isToken(from) && !isHexID(from) {
		return nil, fmt.Errorf("invalid FROM token: %q", from)
	}
	if !isToken(verb) || !isToken(noun) {
		return nil, fmt.Errorf("invalid VERB/NOUN: %q %q", verb, noun)
	}
	for i, a := range args {
		if !isToken(a) {
			return nil, fmt.Errorf("invalid ARG[%d]: %q", i, a)
		}
	}

	return &Message{
		To:   to,
		Verb: strings.ToUpper(verb),
		Noun: strings.ToUpper(noun),
		Args: args,
		From: from,
	}, nil
}

var (
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	hexIDRe = regexp.MustCompile(`^[0-9A-F]{2}$`)
)

func isToken(s string) bool {
	return tokenRe.MatchString(s)
}

func isHexID(s string) bool {
	return hexIDRe.MatchString(strings.ToUpper(s))
}

type Message struct {
	To   string
	Verb string
	Noun string
	Args []string
	From string
}

func (m *Message) String() string {
	parts := make([]string, 0, 4+len(m.Args))
	parts = append(parts, m.To, m.Verb, m.Noun)
	parts = append(parts, m.Args...)
	parts = append(parts, m.From)
	return strings.Join(parts, ":")
}

func (m *Message) Error(reason string, args ...string) {
	m.Verb = "ERR"
	m.Noun = reason
	m.Args = args
}

func (m *Message) Ok(reason string, args ...string) {
	m.Verb = "OK"
	m.Noun = reason
	m.Args = args
}
