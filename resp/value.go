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

// Package resp implements the RESP2/RESP3 wire codec and the value
// materializer. Decode parses a reply into a Value tree whose bulk payloads
// are slices of the caller's buffer; Materialize then walks that tree in a
// separate pass to produce a host Go value. The two are not fused: the
// intermediate Value tree is always built.
package resp

// Kind tags which RESP type a Value holds.
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
	KindMap          Kind = '%'
	KindSet          Kind = '~'
	KindDouble       Kind = ','
	KindBoolean      Kind = '#'
	KindBigNumber    Kind = '('
	KindVerbatim     Kind = '='
	KindPush         Kind = '>'
	KindNull         Kind = '_'
)

// Value is a tagged RESP variant. Bulk payloads and simple strings are
// zero-copy slices into the connection's read buffer while parsing is in
// progress; callers that retain a Value past the call that produced it must
// copy first. Materialize (materialize.go) does this for you.
type Value struct {
	Kind Kind

	Str  []byte    // SimpleString, Error, BigNumber (as text bytes), BulkString payload
	Int  int64
	Arr  []Value   // Array, Set, Push
	Map  []MapPair // Map: flat ordered pairs, preserving wire order and duplicates
	Dbl  float64
	Bool bool

	VerbatimFormat string // e.g. "txt", "mkd"; only set for KindVerbatim
	Null           bool   // true for a null bulk string / null array
}

// MapPair is one key/value entry of a RESP3 Map, kept in wire order.
type MapPair struct {
	Key Value
	Val Value
}

// IsError reports whether v is a server error reply.
func (v Value) IsError() bool { return v.Kind == KindError }

// ErrorText returns the error message for a KindError value.
func (v Value) ErrorText() string { return string(v.Str) }
