// Copyright 2025 The rediswire Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package conn wraps one transport stream to a Redis-compatible server:
// it owns the read buffer, negotiates the RESP3 handshake, and exposes
// SendPipeline as the only I/O entry point the pool and router need.
package conn

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/rediswire/rediswire/common"
	"github.com/rediswire/rediswire/internal/fasttime"
	"github.com/rediswire/rediswire/logger"
	"github.com/rediswire/rediswire/rediserr"
	"github.com/rediswire/rediswire/resp"
)

// Options configures dialing and per-syscall timeouts for a Connection.
type Options struct {
	Network        string // "tcp" or "unix"
	Address        string
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
	Username       string
	Password       string
	DB             int
	TLS            bool
}

// HelloInfo holds the server attributes negotiated over HELLO.
type HelloInfo struct {
	Proto   int64
	Role    string
	Version string
}

// Connection wraps one transport stream. Exactly one outstanding request
// batch is ever in flight: callers serialize their own access (the pool
// hands out exclusive ownership).
type Connection struct {
	id    string
	conn  net.Conn
	opt   Options
	dec   *resp.Decoder
	read  []byte // growable read buffer, compacted between replies
	gen   uint64
	hello HelloInfo

	broken    bool
	lastError error
	createdAt int64
	lastUsed  int64
}

// Dial opens a transport stream and negotiates the protocol, returning a
// ready-to-use Connection. A dial or handshake failure never leaves a
// half-built Connection behind: the caller gets only an error.
func Dial(ctx context.Context, opt Options) (*Connection, error) {
	network := opt.Network
	if network == "" {
		network = "tcp"
	}

	d := net.Dialer{Timeout: opt.ConnectTimeout}
	nc, err := d.DialContext(ctx, network, opt.Address)
	if err != nil {
		return nil, rediserr.NewConnectionError("dial failed", err)
	}

	if opt.TLS {
		nc, err = tlsify(ctx, nc, opt)
		if err != nil {
			return nil, rediserr.NewConnectionError("tls handshake failed", err)
		}
	}

	c := &Connection{
		id:        uuid.NewString(),
		conn:      nc,
		opt:       opt,
		dec:       resp.NewDecoder(),
		read:      make([]byte, 0, common.ReadBufferChunk),
		gen:       1,
		createdAt: fasttime.UnixTimestamp(),
		lastUsed:  fasttime.UnixTimestamp(),
	}

	if err := c.handshake(opt); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

// tlsify upgrades an established plaintext net.Conn to TLS for rediss://,
// handshaking within the same connect deadline the plaintext dial already
// honored.
func tlsify(ctx context.Context, nc net.Conn, opt Options) (net.Conn, error) {
	host := opt.Address
	if h, _, err := net.SplitHostPort(opt.Address); err == nil {
		host = h
	}
	tc := tls.Client(nc, &tls.Config{ServerName: host})
	if opt.ConnectTimeout > 0 {
		if err := tc.SetDeadline(time.Now().Add(opt.ConnectTimeout)); err != nil {
			_ = nc.Close()
			return nil, err
		}
	}
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = nc.Close()
		return nil, err
	}
	if err := tc.SetDeadline(time.Time{}); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return tc, nil
}

// ID returns the connection's identifier, assigned at Dial time and stable
// for its lifetime (it does not change across generations).
func (c *Connection) ID() string { return c.id }

// Hello returns the attributes negotiated during the handshake.
func (c *Connection) Hello() HelloInfo { return c.hello }

// IsBroken reports whether this connection must be discarded rather than
// returned to the pool.
func (c *Connection) IsBroken() bool { return c.broken }

// LastError returns the error that last broke the connection, if any.
func (c *Connection) LastError() error { return c.lastError }

// Generation increments every time the connection is reused for a new
// logical session (currently only at Dial); exposed for observability.
func (c *Connection) Generation() uint64 { return c.gen }

func (c *Connection) markBroken(err error) error {
	c.broken = true
	c.lastError = err
	c.logBroken(err.Error())
	return err
}

func (c *Connection) deadline() time.Time {
	if c.opt.SocketTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.opt.SocketTimeout)
}

// SendPipeline writes every frame in frames as one flushed batch, then
// reads and materializes exactly len(frames) replies in order. Either all
// replies come back, or the connection is marked broken.
func (c *Connection) SendPipeline(frames []resp.Frame, opts resp.Options) ([]any, error) {
	if c.broken {
		return nil, rediserr.NewConnectionError("connection is broken", c.lastError)
	}

	buf := resp.BufferPool.Get()
	defer resp.BufferPool.Put(buf)
	for _, f := range frames {
		resp.EncodeFrame(buf, f)
	}

	if err := c.conn.SetWriteDeadline(c.deadline()); err != nil {
		return nil, c.markBroken(rediserr.NewConnectionError("set write deadline", err))
	}
	if _, err := c.conn.Write(buf.B); err != nil {
		return nil, c.markBroken(classifyIOError(err, "write"))
	}

	// Every frame gets exactly one reply off the wire regardless of whether
	// that reply is a server error, so the loop always drains len(frames)
	// values, aggregating every classified server error into one
	// multierror.Error rather than surfacing only the first and losing the
	// rest.
	out := make([]any, len(frames))
	var errs *multierror.Error
	for i := 0; i < len(frames); i++ {
		v, err := c.readOneValue()
		if err != nil {
			return nil, c.markBroken(err)
		}
		mv, err := resp.Materialize(v, opts)
		if err != nil {
			if rediserr.IsBroken(err) {
				return nil, c.markBroken(err)
			}
			// A classified server error still counts as a successfully
			// parsed reply: the connection stays healthy.
			errs = multierror.Append(errs, err)
			continue
		}
		out[i] = mv
	}

	// At the framing boundary the read buffer must be empty: any byte left
	// over belongs to no outstanding request and would corrupt the next
	// caller's replies if the connection were returned to the pool.
	if len(c.read) != 0 {
		return nil, c.markBroken(rediserr.NewProtocolError("unexpected bytes after final reply", nil))
	}

	c.lastUsed = fasttime.UnixTimestamp()
	return out, errs.ErrorOrNil()
}

func (c *Connection) readOneValue() (resp.Value, error) {
	for {
		v, n, outcome, err := c.dec.Decode(c.read)
		if err != nil {
			return resp.Value{}, rediserr.NewProtocolError("malformed reply", err)
		}
		switch outcome {
		case resp.Complete:
			c.read = c.compact(c.read[n:])
			return v, nil
		case resp.Incomplete:
			if err := c.fill(); err != nil {
				// A stream that ends inside a reply is a framing failure,
				// not a plain connection failure: the peer stopped
				// mid-value.
				if e, ok := err.(*rediserr.Error); ok && e.Kind == rediserr.KindConnection && (c.dec.Partial() || len(c.read) > 0) {
					return resp.Value{}, rediserr.NewProtocolError("reply truncated mid-value", err)
				}
				return resp.Value{}, err
			}
		}
	}
}

// fill grows the read buffer by common.ReadBufferChunk and reads more bytes
// from the socket, enforcing the soft cap on reply size.
func (c *Connection) fill() error {
	if cap(c.read)-len(c.read) < common.ReadBufferChunk {
		grown := make([]byte, len(c.read), cap(c.read)+common.ReadBufferChunk)
		copy(grown, c.read)
		c.read = grown
	}
	if len(c.read) >= common.ReadBufferSoftCap {
		return rediserr.NewProtocolError("reply exceeds read buffer soft cap", nil)
	}

	if err := c.conn.SetReadDeadline(c.deadline()); err != nil {
		return rediserr.NewConnectionError("set read deadline", err)
	}
	start := len(c.read)
	growBy := cap(c.read) - start
	c.read = c.read[:start+growBy]
	n, err := c.conn.Read(c.read[start:])
	c.read = c.read[:start+n]
	if err != nil {
		return classifyIOError(err, "read")
	}
	if n == 0 {
		return rediserr.NewConnectionError("connection closed by peer", nil)
	}
	return nil
}

// compact discards the already-consumed prefix of the read buffer, only
// moving bytes down when occupancy drops below half of capacity so the
// copies amortize.
func (c *Connection) compact(remaining []byte) []byte {
	if len(remaining) == 0 {
		return remaining[:0]
	}
	if float64(len(remaining))/float64(cap(c.read)) >= common.ReadBufferCompactThreshold {
		return remaining
	}
	newCap := common.ReadBufferChunk
	if len(remaining) > newCap {
		newCap = len(remaining)
	}
	fresh := make([]byte, len(remaining), newCap)
	copy(fresh, remaining)
	return fresh
}

func classifyIOError(err error, op string) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return rediserr.NewTimeoutError(op+" timed out", err)
	}
	return rediserr.NewConnectionError(op+" failed", err)
}

// Close closes the underlying transport without further error handling.
func (c *Connection) Close() error {
	c.broken = true
	return c.conn.Close()
}

// IdleFor reports how many seconds have elapsed since this connection was
// last used, for the pool's optional idle-age eviction.
func (c *Connection) IdleFor() int64 {
	return fasttime.UnixTimestamp() - c.lastUsed
}

func (c *Connection) logBroken(reason string) {
	logger.Warnf("conn %s marked broken: %s", c.id, reason)
}
