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

package redis

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rediswire/rediswire/common"
)

// fakeServer accepts any number of connections, answers every HELLO with a
// RESP3 handshake reply and echoes +OK\r\n for everything else, except GET
// foo which answers $3\r\nbar\r\n so ExecuteCommand has something non-trivial
// to assert on.
func fakeServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(c)
		}
	}()
	return ln.Addr().String()
}

func handleConn(c net.Conn) {
	defer c.Close()
	buf := make([]byte, 4096)
	for {
		n, err := c.Read(buf)
		if err != nil {
			return
		}
		// A pipelined batch arrives as one read carrying several frames, and
		// each frame starts with its "*N" array header; splitting on '*'
		// yields one chunk per frame so every queued command gets its own
		// reply.
		for _, frame := range strings.Split(string(buf[:n]), "*")[1:] {
			frame = strings.ToUpper(frame)
			switch {
			case strings.Contains(frame, "HELLO"):
				_, _ = c.Write([]byte("%3\r\n+proto\r\n:3\r\n+role\r\n+master\r\n+version\r\n+7.4.0\r\n"))
			case strings.Contains(frame, "GET"):
				_, _ = c.Write([]byte("$3\r\nbar\r\n"))
			default:
				_, _ = c.Write([]byte("+OK\r\n"))
			}
		}
	}
}

func testConfig(addr string) Config {
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	return Config{
		Host:            host,
		Port:            port,
		ConnectTimeout:  time.Second,
		SocketTimeout:   time.Second,
		PoolTimeout:     time.Second,
		MaxConnections:  4,
		DecodeResponses: true,
	}
}

func TestClientExecuteCommand(t *testing.T) {
	addr := fakeServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	v, err := c.ExecuteCommand(context.Background(), "GET", "foo")
	require.NoError(t, err)
	require.Equal(t, "bar", v)
}

func TestClientSetWrapper(t *testing.T) {
	addr := fakeServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	// An "OK" reply surfaces as true through a typed wrapper, never as the
	// raw text - that's reserved for the generic ExecuteCommand.
	v, err := c.Set(context.Background(), "foo", "bar")
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestClientSetWrapperReshapesConditionalReply(t *testing.T) {
	addr := fakeServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	v, err := c.Set(context.Background(), "foo", "bar", "NX")
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestPipelineSetReshapesConditionalReply(t *testing.T) {
	addr := fakeServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	out, err := c.Pipeline().Set("foo", "bar", "NX").Command("GET", "foo").Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, true, out[0])
	require.Equal(t, "bar", out[1])
}

func TestClientPoolReleasesConnectionAfterUse(t *testing.T) {
	addr := fakeServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	_, err := c.ExecuteCommand(context.Background(), "PING")
	require.NoError(t, err)
	require.Equal(t, 1, c.PoolIdleCount())
	require.Equal(t, 1, c.PoolLiveCount())
	require.Equal(t, 4, c.PoolAvailable())
}

// recordingServer behaves like fakeServer but also hands every request
// frame it sees to the returned channel, so tests can assert on the exact
// arguments a wrapper put on the wire.
func recordingServer(t *testing.T) (string, chan string) {
	t.Helper()
	frames := make(chan string, 16)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					for _, frame := range strings.Split(string(buf[:n]), "*")[1:] {
						frames <- frame
						if strings.Contains(strings.ToUpper(frame), "HELLO") {
							_, _ = c.Write([]byte("%3\r\n+proto\r\n:3\r\n+role\r\n+master\r\n+version\r\n+7.4.0\r\n"))
							continue
						}
						_, _ = c.Write([]byte("+OK\r\n"))
					}
				}
			}(c)
		}
	}()
	return ln.Addr().String(), frames
}

func TestGraphQueryWithOptionsAppendsTimeout(t *testing.T) {
	addr, frames := recordingServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	opts := common.NewOptions()
	opts.Merge("timeout", 500)
	_, err := c.GraphQueryWithOptions(context.Background(), "social", "MATCH (n) RETURN n", opts)
	require.NoError(t, err)

	var graphFrame string
	for len(frames) > 0 {
		f := <-frames
		if strings.Contains(f, "GRAPH.QUERY") {
			graphFrame = f
		}
	}
	require.Contains(t, graphFrame, "--compact")
	require.Contains(t, graphFrame, "TIMEOUT")
	require.Contains(t, graphFrame, "500")
}

func TestClientPipelineExecute(t *testing.T) {
	addr := fakeServer(t)
	c := New(testConfig(addr))
	defer c.Close()

	out, err := c.Pipeline().Command("SET", "foo", "bar").Command("GET", "foo").Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "OK", out[0])
	require.Equal(t, "bar", out[1])
}
