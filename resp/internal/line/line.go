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

// Package line scans CRLF-terminated lines out of a byte slice without
// copying, the way bufio.Scanner would but without the internal copy
// bufio.Reader.ReadSlice performs on refill. Unlike a one-shot packet
// buffer, a RESP read buffer keeps growing while a reply is incomplete, so
// Next reports whether it actually found a terminator rather than silently
// returning a partial line at EOF.
package line

import "github.com/pkg/errors"

// CRLF is the RESP line terminator.
var CRLF = []byte("\r\n")

// Next returns the line starting at pos (without its trailing CRLF), the
// offset just past the terminator, and ok=true if a full CRLF-terminated
// line was found. ok=false with a nil error means buf is exhausted before a
// terminator was seen; the caller should wait for more bytes and rescan
// from the same pos. A non-nil error means a bare CR (not followed by LF)
// or a bare LF was seen: a lone CR or LF inside a line is always fatal,
// never "incomplete".
func Next(buf []byte, pos int) (l []byte, next int, ok bool, err error) {
	for i := pos; i < len(buf); i++ {
		switch buf[i] {
		case '\r':
			if i+1 >= len(buf) {
				return nil, pos, false, nil
			}
			if buf[i+1] != '\n' {
				return nil, pos, false, errors.New("resp: bare CR in line")
			}
			return buf[pos:i], i + 2, true, nil
		case '\n':
			return nil, pos, false, errors.New("resp: bare LF in line")
		}
	}
	return nil, pos, false, nil
}
