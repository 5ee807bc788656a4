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

package conn

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediswire/rediswire/rediserr"
	"github.com/rediswire/rediswire/resp"
)

// splitFrames splits one read's worth of request bytes into per-frame
// chunks. Every request frame starts with its "*N" array header and no test
// command carries a '*' in an argument, so splitting on '*' recovers one
// chunk per pipelined frame even when a whole batch arrives in a single
// read.
func splitFrames(req string) []string {
	return strings.Split(req, "*")[1:]
}

// fakeServer accepts one connection. When helloFails is set, every HELLO it
// sees is rejected with the unknown-command error real RESP2-only servers
// send, forcing the RESP2 fallback path. Every non-HELLO frame gets
// +PONG\r\n, one reply per pipelined frame.
func fakeServer(t *testing.T, helloFails bool) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		buf := make([]byte, 4096)
		for {
			n, err := c.Read(buf)
			if err != nil {
				return
			}
			for _, frame := range splitFrames(string(buf[:n])) {
				switch {
				case containsHello(frame):
					if helloFails {
						_, _ = c.Write([]byte("-ERR unknown command 'HELLO'\r\n"))
						continue
					}
					_, _ = c.Write([]byte("%3\r\n+proto\r\n:3\r\n+role\r\n+master\r\n+version\r\n+7.4.0\r\n"))
				default:
					_, _ = c.Write([]byte("+PONG\r\n"))
				}
			}
		}
	}()
	return ln.Addr().String()
}

func containsHello(req string) bool {
	return strings.Contains(strings.ToUpper(req), "HELLO")
}

func TestDialNegotiatesRESP3(t *testing.T) {
	addr := fakeServer(t, false)
	c, err := Dial(context.Background(), Options{Address: addr, ConnectTimeout: time.Second, SocketTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, int64(3), c.Hello().Proto)
	assert.Equal(t, "master", c.Hello().Role)
}

func TestDialFallsBackToRESP2OnUnknownHello(t *testing.T) {
	addr := fakeServer(t, true)
	c, err := Dial(context.Background(), Options{Address: addr, ConnectTimeout: time.Second, SocketTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.IsBroken())
}

func TestSendPipelineAfterDialRoundTrips(t *testing.T) {
	addr := fakeServer(t, true)
	c, err := Dial(context.Background(), Options{Address: addr, ConnectTimeout: time.Second, SocketTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	out, err := c.SendPipeline([]resp.Frame{resp.NewFrame("PING")}, resp.Options{DecodeResponses: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "PONG", out[0])
}

// errorServer accepts one connection, replies to HELLO with a RESP3
// handshake, and to every other request with a distinct server error so
// SendPipeline's multi-error aggregation can be exercised.
func errorServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		replies := []string{
			"-WRONGTYPE Operation against a key holding the wrong kind of value\r\n",
			"-ERR some other failure\r\n",
		}
		idx := 0
		buf := make([]byte, 4096)
		for {
			n, err := c.Read(buf)
			if err != nil {
				return
			}
			for _, frame := range splitFrames(string(buf[:n])) {
				if containsHello(frame) {
					_, _ = c.Write([]byte("%3\r\n+proto\r\n:3\r\n+role\r\n+master\r\n+version\r\n+7.4.0\r\n"))
					continue
				}
				_, _ = c.Write([]byte(replies[idx%len(replies)]))
				idx++
			}
		}
	}()
	return ln.Addr().String()
}

func TestSendPipelineAggregatesMultipleServerErrors(t *testing.T) {
	addr := errorServer(t)
	c, err := Dial(context.Background(), Options{Address: addr, ConnectTimeout: time.Second, SocketTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	out, err := c.SendPipeline([]resp.Frame{
		resp.NewFrame("GET", "foo"),
		resp.NewFrame("SET", "foo", "bar"),
	}, resp.Options{DecodeResponses: true})
	require.Error(t, err)
	require.Len(t, out, 2)
	assert.Contains(t, err.Error(), "WRONGTYPE")
	assert.Contains(t, err.Error(), "some other failure")
	assert.False(t, c.IsBroken())
}

// truncatingServer completes the handshake, then answers the next request
// with the first bytes of a bulk string and closes the socket mid-value.
func truncatingServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 4096)
		for {
			n, err := c.Read(buf)
			if err != nil {
				_ = c.Close()
				return
			}
			if containsHello(string(buf[:n])) {
				_, _ = c.Write([]byte("%3\r\n+proto\r\n:3\r\n+role\r\n+master\r\n+version\r\n+7.4.0\r\n"))
				continue
			}
			_, _ = c.Write([]byte("$10\r\nhel"))
			_ = c.Close()
			return
		}
	}()
	return ln.Addr().String()
}

func TestTruncatedReplyIsProtocolErrorAndMarksBroken(t *testing.T) {
	addr := truncatingServer(t)
	c, err := Dial(context.Background(), Options{Address: addr, ConnectTimeout: time.Second, SocketTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.SendPipeline([]resp.Frame{resp.NewFrame("GET", "foo")}, resp.Options{})
	require.Error(t, err)

	var re *rediserr.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, rediserr.KindProtocol, re.Kind)
	assert.True(t, c.IsBroken())
}

func TestDialConnectTimeout(t *testing.T) {
	// 10.255.255.1 is a non-routable address used to force a connect timeout.
	_, err := Dial(context.Background(), Options{Address: "10.255.255.1:6379", ConnectTimeout: 50 * time.Millisecond})
	assert.Error(t, err)
}
