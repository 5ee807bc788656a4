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

package resp

import (
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Frame is one request: an ordered sequence of byte arguments, the first
// of which is the command name.
type Frame [][]byte

// NewFrame builds a Frame from string arguments, a convenience for the
// command wrappers layered on top of this package.
func NewFrame(args ...string) Frame {
	f := make(Frame, len(args))
	for i, a := range args {
		f[i] = []byte(a)
	}
	return f
}

// EncodeFrame writes a request frame's RESP encoding ("*N\r\n" followed by
// "$L\r\n<bytes>\r\n" per argument) into dst, borrowed from a
// bytebufferpool.Pool so repeated pipeline appends don't each allocate their
// own backing array.
func EncodeFrame(dst *bytebufferpool.ByteBuffer, f Frame) {
	dst.B = append(dst.B, '*')
	dst.B = strconv.AppendInt(dst.B, int64(len(f)), 10)
	dst.B = append(dst.B, '\r', '\n')
	for _, arg := range f {
		dst.B = append(dst.B, '$')
		dst.B = strconv.AppendInt(dst.B, int64(len(arg)), 10)
		dst.B = append(dst.B, '\r', '\n')
		dst.B = append(dst.B, arg...)
		dst.B = append(dst.B, '\r', '\n')
	}
}

// BufferPool is the shared bytebufferpool used when encoding request frames,
// mirroring how valyala/fasthttp-adjacent libraries in the reference corpus
// pool write buffers instead of allocating one per call.
var BufferPool bytebufferpool.Pool
