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
	"strconv"
	"strings"

	"github.com/rediswire/rediswire/resp"
)

// handshake negotiates RESP3 via HELLO 3, falling back to RESP2 when the
// server doesn't recognize HELLO (pre-RESP3 servers reply with an
// unknown-command error rather than a protocol error). AUTH rides on the
// HELLO call when it succeeds and is issued as a plain AUTH command on the
// fallback path; SELECT is issued separately when DB is non-zero.
func (c *Connection) handshake(opt Options) error {
	// Handshake replies are consumed internally, so they always decode as
	// text regardless of the client's DecodeResponses setting.
	opts := resp.Options{DecodeResponses: true}

	out, err := c.SendPipeline([]resp.Frame{helloFrame(opt)}, opts)
	switch {
	case err == nil:
		if len(out) == 1 {
			c.hello = parseHello(out[0])
		}
	case isUnknownCommand(err):
		// A pre-RESP3 server doesn't know HELLO at all, so retrying with a
		// lower protocol number would fail the same way. Stay on RESP2 and
		// authenticate the old way when credentials were supplied.
		c.hello = HelloInfo{Proto: 2}
		if opt.Password != "" {
			if _, err := c.SendPipeline([]resp.Frame{authFrame(opt)}, opts); err != nil {
				return err
			}
		}
	default:
		return err
	}

	if opt.DB != 0 {
		if _, err := c.SendPipeline([]resp.Frame{resp.NewFrame("SELECT", strconv.Itoa(opt.DB))}, opts); err != nil {
			return err
		}
	}
	return nil
}

func helloFrame(opt Options) resp.Frame {
	args := []string{"HELLO", "3"}
	if opt.Username != "" || opt.Password != "" {
		args = append(args, "AUTH", opt.Username, opt.Password)
	}
	return resp.NewFrame(args...)
}

func authFrame(opt Options) resp.Frame {
	if opt.Username != "" {
		return resp.NewFrame("AUTH", opt.Username, opt.Password)
	}
	return resp.NewFrame("AUTH", opt.Password)
}

func isUnknownCommand(err error) bool {
	return strings.Contains(err.Error(), "unknown command")
}

// parseHello extracts the attributes the connection keeps from the HELLO
// reply: a flat alternating key/value sequence whether the server answered
// with a RESP3 map or a RESP2 array.
func parseHello(v any) HelloInfo {
	flat, ok := v.([]any)
	if !ok {
		return HelloInfo{}
	}
	info := HelloInfo{}
	for i := 0; i+1 < len(flat); i += 2 {
		key, _ := flat[i].(string)
		switch key {
		case "proto":
			if n, ok := flat[i+1].(int64); ok {
				info.Proto = n
			}
		case "role":
			if s, ok := flat[i+1].(string); ok {
				info.Role = s
			}
		case "version":
			if s, ok := flat[i+1].(string); ok {
				info.Version = s
			}
		}
	}
	return info
}
