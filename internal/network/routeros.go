package network

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// RouterOSClient speaks the binary RouterOS API protocol (default port 8728).
// It holds at most one session; all commands are serialized over it because
// the protocol carries no request tags to correlate interleaved replies.
type RouterOSClient struct {
	addr     string
	username string
	password string
	timeout  time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewRouterOSClient creates a client for the given endpoint. The session is
// established lazily on first use.
func NewRouterOSClient(host string, port int, username, password string) *RouterOSClient {
	return &RouterOSClient{
		addr:     fmt.Sprintf("%s:%d", host, port),
		username: username,
		password: password,
		timeout:  10 * time.Second,
	}
}

// Connect dials and authenticates. Reuses an existing session if present.
func (c *RouterOSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *RouterOSClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &ConnectionError{Addr: c.addr, Err: err}
	}

	c.conn = conn
	if err := c.login(); err != nil {
		conn.Close()
		c.conn = nil
		return &ConnectionError{Addr: c.addr, Err: err}
	}
	return nil
}

// login performs the post-6.43 plaintext login, falling back to the legacy
// MD5 challenge-response when the router answers with =ret=.
func (c *RouterOSClient) login() error {
	c.conn.SetDeadline(time.Now().Add(c.timeout))

	if err := c.writeSentence([]string{
		"/login",
		"=name=" + c.username,
		"=password=" + c.password,
	}); err != nil {
		return fmt.Errorf("send login: %w", err)
	}

	reply, err := c.readSentence()
	if err != nil {
		return fmt.Errorf("read login reply: %w", err)
	}

	switch {
	case len(reply) > 0 && reply[0] == "!trap":
		return fmt.Errorf("authentication failed: %s", trapMessage(reply))
	case len(reply) > 0 && reply[0] == "!done":
		for _, word := range reply {
			if strings.HasPrefix(word, "=ret=") {
				return c.challengeLogin(strings.TrimPrefix(word, "=ret="))
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected login reply: %v", reply)
	}
}

// challengeLogin answers the pre-6.43 challenge: MD5(0x00 + password + challenge).
func (c *RouterOSClient) challengeLogin(challenge string) error {
	challengeBytes, err := hex.DecodeString(challenge)
	if err != nil {
		return fmt.Errorf("decode challenge: %w", err)
	}

	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(c.password))
	h.Write(challengeBytes)
	response := hex.EncodeToString(h.Sum(nil))

	if err := c.writeSentence([]string{
		"/login",
		"=name=" + c.username,
		"=response=00" + response,
	}); err != nil {
		return fmt.Errorf("send challenge response: %w", err)
	}

	reply, err := c.readSentence()
	if err != nil {
		return fmt.Errorf("read challenge reply: %w", err)
	}
	if len(reply) > 0 && reply[0] == "!trap" {
		return fmt.Errorf("authentication failed: %s", trapMessage(reply))
	}
	return nil
}

// Read lists records under path, filtered by query words (?key=value).
func (c *RouterOSClient) Read(ctx context.Context, path string, query map[string]string) ([]Row, error) {
	words := []string{path + "/print"}
	for _, k := range sortedKeys(query) {
		words = append(words, "?"+k+"="+query[k])
	}
	return c.run(ctx, words)
}

// Write executes a mutating command. Path carries the verb (/add, /set, ...);
// params become attribute words (=key=value).
func (c *RouterOSClient) Write(ctx context.Context, path string, params map[string]string) (Row, error) {
	words := []string{path}
	for _, k := range sortedKeys(params) {
		words = append(words, "="+k+"="+params[k])
	}
	rows, err := c.run(ctx, words)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	return Row{}, nil
}

// Remove deletes the record with the given vendor id under path.
func (c *RouterOSClient) Remove(ctx context.Context, path string, id string) error {
	_, err := c.run(ctx, []string{path + "/remove", "=.id=" + id})
	return err
}

// Disconnect closes the session. No-op when not connected.
func (c *RouterOSClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// run sends one command sentence and collects reply rows until !done.
// A !trap reply surfaces as an error carrying the router's message.
func (c *RouterOSClient) run(ctx context.Context, words []string) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	c.conn.SetDeadline(time.Now().Add(c.timeout))

	if err := c.writeSentence(words); err != nil {
		c.dropConnLocked()
		return nil, fmt.Errorf("send %s: %w", words[0], err)
	}

	var rows []Row
	var trapMsg string
	var done Row

	for {
		sentence, err := c.readSentence()
		if err != nil {
			c.dropConnLocked()
			return nil, fmt.Errorf("read reply to %s: %w", words[0], err)
		}
		if len(sentence) == 0 {
			continue
		}

		switch sentence[0] {
		case "!re":
			rows = append(rows, parseAttributes(sentence[1:]))
		case "!trap", "!fatal":
			trapMsg = trapMessage(sentence)
		case "!done":
			done = parseAttributes(sentence[1:])
		}

		if sentence[0] == "!done" {
			break
		}
		if sentence[0] == "!fatal" {
			c.dropConnLocked()
			return nil, fmt.Errorf("%s: router closed session: %s", words[0], trapMsg)
		}
	}

	if trapMsg != "" {
		return nil, fmt.Errorf("%s: %s", words[0], trapMsg)
	}
	if len(rows) == 0 && len(done) > 0 {
		rows = append(rows, done)
	}
	return rows, nil
}

// dropConnLocked discards a session after an I/O failure so the next call
// starts from a clean connect. Must hold c.mu.
func (c *RouterOSClient) dropConnLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *RouterOSClient) writeSentence(words []string) error {
	for _, word := range words {
		if err := c.writeWord(word); err != nil {
			return err
		}
	}
	return c.writeWord("")
}

func (c *RouterOSClient) writeWord(word string) error {
	if _, err := c.conn.Write(encodeLength(len(word))); err != nil {
		return err
	}
	if len(word) > 0 {
		if _, err := c.conn.Write([]byte(word)); err != nil {
			return err
		}
	}
	return nil
}

// readSentence reads words until the empty terminator word.
func (c *RouterOSClient) readSentence() ([]string, error) {
	var words []string
	for {
		word, err := c.readWord()
		if err != nil {
			return nil, err
		}
		if word == "" {
			return words, nil
		}
		words = append(words, word)
	}
}

func (c *RouterOSClient) readWord() (string, error) {
	length, err := c.readLength()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (c *RouterOSClient) readLength() (int, error) {
	b := make([]byte, 1)
	if _, err := io.ReadFull(c.conn, b); err != nil {
		return 0, err
	}

	first := b[0]
	switch {
	case first < 0x80:
		return int(first), nil
	case first < 0xC0:
		extra := make([]byte, 1)
		if _, err := io.ReadFull(c.conn, extra); err != nil {
			return 0, err
		}
		return int(first&0x3F)<<8 | int(extra[0]), nil
	case first < 0xE0:
		extra := make([]byte, 2)
		if _, err := io.ReadFull(c.conn, extra); err != nil {
			return 0, err
		}
		return int(first&0x1F)<<16 | int(extra[0])<<8 | int(extra[1]), nil
	case first < 0xF0:
		extra := make([]byte, 3)
		if _, err := io.ReadFull(c.conn, extra); err != nil {
			return 0, err
		}
		return int(first&0x0F)<<24 | int(extra[0])<<16 | int(extra[1])<<8 | int(extra[2]), nil
	default:
		extra := make([]byte, 4)
		if _, err := io.ReadFull(c.conn, extra); err != nil {
			return 0, err
		}
		return int(extra[0])<<24 | int(extra[1])<<16 | int(extra[2])<<8 | int(extra[3]), nil
	}
}

// encodeLength encodes a word length in the RouterOS variable-width scheme.
func encodeLength(length int) []byte {
	switch {
	case length < 0x80:
		return []byte{byte(length)}
	case length < 0x4000:
		return []byte{byte(length>>8) | 0x80, byte(length)}
	case length < 0x200000:
		return []byte{byte(length>>16) | 0xC0, byte(length >> 8), byte(length)}
	case length < 0x10000000:
		return []byte{byte(length>>24) | 0xE0, byte(length >> 16), byte(length >> 8), byte(length)}
	default:
		return []byte{0xF0, byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length)}
	}
}

// parseAttributes turns =key=value words into a Row.
func parseAttributes(words []string) Row {
	row := make(Row, len(words))
	for _, word := range words {
		if !strings.HasPrefix(word, "=") {
			continue
		}
		parts := strings.SplitN(word[1:], "=", 2)
		if len(parts) == 2 {
			row[parts[0]] = parts[1]
		} else {
			row[parts[0]] = ""
		}
	}
	return row
}

func trapMessage(words []string) string {
	for _, word := range words {
		if strings.HasPrefix(word, "=message=") {
			return strings.TrimPrefix(word, "=message=")
		}
	}
	// !fatal carries its reason as a bare word
	for _, word := range words {
		if !strings.HasPrefix(word, "!") && !strings.HasPrefix(word, "=") {
			return word
		}
	}
	return "unknown router error"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
