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

	"github.com/pkg/errors"

	"github.com/rediswire/rediswire/resp/internal/line"
)

// Outcome is the decoder's verdict for one call: a full value was parsed
// (Complete), more bytes are needed (Incomplete), or the stream is
// malformed (Protocol, fatal).
type Outcome int

const (
	Incomplete Outcome = iota
	Complete
	Protocol
)

// DefaultDepthCap is the default bound on nested composite values.
const DefaultDepthCap = 128

// frame tracks one partially-parsed composite value (array/map/set/push) so
// that Decode can walk nested structures with an explicit stack instead of
// native recursion.
type frame struct {
	kind      Kind
	remaining int
	items     []Value
}

// Decoder parses a stream of RESP replies out of a caller-supplied buffer.
// It is stateful only across Incomplete results: Decode may be called again
// with a longer prefix of the same logical stream (the read buffer having
// grown) and will resume where it left off without re-walking completed
// composite elements.
type Decoder struct {
	DepthCap int

	stack []frame
	pos   int // bytes of the current in-flight value already consumed
}

func NewDecoder() *Decoder {
	return &Decoder{DepthCap: DefaultDepthCap}
}

func (d *Decoder) depthCap() int {
	if d.DepthCap <= 0 {
		return DefaultDepthCap
	}
	return d.DepthCap
}

// Reset discards any partially-parsed state. Decode calls it itself before
// reporting a Protocol outcome; the connection layer does not call it.
func (d *Decoder) Reset() {
	d.stack = d.stack[:0]
	d.pos = 0
}

// Partial reports whether the decoder is mid-value: some bytes of the
// current reply have been consumed but the value is not yet Complete. The
// connection layer uses this to tell a stream that ended between replies
// (a connection problem) from one that ended inside a reply (a framing
// problem).
func (d *Decoder) Partial() bool {
	return d.pos > 0 || len(d.stack) > 0
}

// Decode attempts to parse exactly one top-level RESP value out of buf.
// buf must start at the same logical offset on every call until a
// Complete/Protocol outcome: on Incomplete the caller appends more bytes to
// the end of buf and calls Decode again with the same (now longer) slice.
// Once Complete, the caller consumes buf[:n] and may start an independent
// Decode call for the next value with buf[n:]. On Protocol the connection
// must be discarded.
func (d *Decoder) Decode(buf []byte) (Value, int, Outcome, error) {
	var pending *Value

	for {
		if len(d.stack) > 0 && pending != nil {
			top := &d.stack[len(d.stack)-1]
			top.items = append(top.items, *pending)
			top.remaining--
			pending = nil
			if top.remaining == 0 {
				v := finishFrame(*top)
				d.stack = d.stack[:len(d.stack)-1]
				pending = &v
				continue
			}
		}

		if len(d.stack) == 0 {
			if pending != nil {
				n := d.pos
				d.pos = 0
				return *pending, n, Complete, nil
			}
		}

		if len(d.stack) >= d.depthCap() {
			d.Reset()
			return Value{}, 0, Protocol, errors.Errorf("resp: nesting exceeds depth cap %d", d.depthCap())
		}

		v, next, ok, err := parseOne(buf, d.pos)
		if err != nil {
			d.Reset()
			return Value{}, 0, Protocol, err
		}
		if !ok {
			return Value{}, 0, Incomplete, nil
		}
		d.pos = next

		if isComposite(v.Kind) {
			n := v.Int // stash element count on Int by parseOne for composites
			if n < 0 {
				pending = &Value{Kind: v.Kind, Null: true}
				continue
			}
			if n == 0 {
				empty := Value{Kind: v.Kind, Arr: []Value{}}
				if v.Kind == KindMap {
					empty = Value{Kind: KindMap, Map: []MapPair{}}
				}
				pending = &empty
				continue
			}
			if len(d.stack) >= d.depthCap() {
				d.Reset()
				return Value{}, 0, Protocol, errors.Errorf("resp: nesting exceeds depth cap %d", d.depthCap())
			}
			d.stack = append(d.stack, frame{kind: v.Kind, remaining: elementCount(v.Kind, n)})
			continue
		}

		pending = &v
	}
}

func isComposite(k Kind) bool {
	switch k {
	case KindArray, KindMap, KindSet, KindPush:
		return true
	default:
		return false
	}
}

func elementCount(k Kind, n int64) int {
	if k == KindMap {
		return int(n) * 2
	}
	return int(n)
}

func finishFrame(f frame) Value {
	if f.kind == KindMap {
		pairs := make([]MapPair, len(f.items)/2)
		for i := range pairs {
			pairs[i] = MapPair{Key: f.items[2*i], Val: f.items[2*i+1]}
		}
		return Value{Kind: KindMap, Map: pairs}
	}
	return Value{Kind: f.kind, Arr: f.items}
}

// parseOne parses a single RESP token starting at pos: either a complete
// scalar value, or (for array/map/set/push) a header whose element count is
// stashed in Value.Int for the caller to push a frame for. ok=false means
// buf doesn't yet hold the whole token and pos is unchanged.
func parseOne(buf []byte, pos int) (Value, int, bool, error) {
	if pos >= len(buf) {
		return Value{}, pos, false, nil
	}

	kind := Kind(buf[pos])
	switch kind {
	case KindSimpleString, KindError, KindInteger, KindDouble, KindBoolean, KindBigNumber:
		l, next, ok, err := line.Next(buf, pos+1)
		if err != nil {
			return Value{}, pos, false, err
		}
		if !ok {
			return Value{}, pos, false, nil
		}
		v, err := parseOneLine(kind, l)
		return v, next, true, err

	case KindNull:
		l, next, ok, err := line.Next(buf, pos+1)
		if err != nil {
			return Value{}, pos, false, err
		}
		if !ok {
			return Value{}, pos, false, nil
		}
		if len(l) != 0 {
			return Value{}, pos, false, errors.New("resp: malformed null reply")
		}
		return Value{Kind: KindNull, Null: true}, next, true, nil

	case KindBulkString:
		return parseBulkString(buf, pos)

	case KindVerbatim:
		v, next, ok, err := parseBulkString(buf, pos)
		if !ok || err != nil {
			return v, pos, ok, err
		}
		if len(v.Str) < 4 || v.Str[3] != ':' {
			return Value{}, pos, false, errors.New("resp: malformed verbatim string")
		}
		v.Kind = KindVerbatim
		v.VerbatimFormat = string(v.Str[:3])
		v.Str = v.Str[4:]
		return v, next, true, nil

	case KindArray, KindMap, KindSet, KindPush:
		l, next, ok, err := line.Next(buf, pos+1)
		if err != nil {
			return Value{}, pos, false, err
		}
		if !ok {
			return Value{}, pos, false, nil
		}
		n, err := strconv.ParseInt(string(l), 10, 64)
		if err != nil {
			return Value{}, pos, false, errors.Wrap(err, "resp: malformed length")
		}
		return Value{Kind: kind, Int: n}, next, true, nil

	default:
		return Value{}, pos, false, errors.Errorf("resp: unrecognized leading byte %q", buf[pos])
	}
}

func parseOneLine(kind Kind, l []byte) (Value, error) {
	switch kind {
	case KindSimpleString:
		return Value{Kind: KindSimpleString, Str: l}, nil
	case KindError:
		return Value{Kind: KindError, Str: l}, nil
	case KindBigNumber:
		return Value{Kind: KindBigNumber, Str: l}, nil
	case KindInteger:
		n, err := strconv.ParseInt(string(l), 10, 64)
		if err != nil {
			return Value{}, errors.Wrap(err, "resp: malformed integer")
		}
		return Value{Kind: KindInteger, Int: n}, nil
	case KindDouble:
		f, err := strconv.ParseFloat(string(l), 64)
		if err != nil {
			return Value{}, errors.Wrap(err, "resp: malformed double")
		}
		return Value{Kind: KindDouble, Dbl: f}, nil
	case KindBoolean:
		if len(l) != 1 || (l[0] != 't' && l[0] != 'f') {
			return Value{}, errors.New("resp: malformed boolean")
		}
		return Value{Kind: KindBoolean, Bool: l[0] == 't'}, nil
	default:
		return Value{}, errors.Errorf("resp: unexpected line kind %q", byte(kind))
	}
}

// parseBulkString parses a "$<len>\r\n<payload>\r\n" token. The returned
// Value.Str is a slice into buf; the caller must copy it before the buffer
// is reused.
func parseBulkString(buf []byte, pos int) (Value, int, bool, error) {
	l, next, ok, err := line.Next(buf, pos+1)
	if err != nil {
		return Value{}, pos, false, err
	}
	if !ok {
		return Value{}, pos, false, nil
	}
	n, err := strconv.ParseInt(string(l), 10, 64)
	if err != nil {
		return Value{}, pos, false, errors.Wrap(err, "resp: malformed bulk length")
	}
	if n < 0 {
		return Value{Kind: KindBulkString, Null: true}, next, true, nil
	}

	end := next + int(n)
	if end+2 > len(buf) {
		return Value{}, pos, false, nil
	}
	if buf[end] != '\r' || buf[end+1] != '\n' {
		return Value{}, pos, false, errors.New("resp: bulk string missing terminator")
	}
	return Value{Kind: KindBulkString, Str: buf[next:end]}, end + 2, true, nil
}
