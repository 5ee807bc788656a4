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
	"unicode/utf8"

	"github.com/rediswire/rediswire/rediserr"
)

// Options configures how decoded values become host values.
type Options struct {
	// DecodeResponses, when true, decodes bulk strings as UTF-8 text,
	// falling back silently to bytes on invalid UTF-8. Default false
	// (bytes).
	DecodeResponses bool
}

// VerbatimString is the materialized form of a RESP3 verbatim string: its
// text, with the 3-byte format tag still available for callers that care.
type VerbatimString struct {
	Format string
	Text   string
}

// PushMessage is the materialized form of a RESP3 out-of-band push frame:
// a sequence with a sentinel tag distinguishing it from a plain Array reply.
type PushMessage []any

// Materialize converts a decoded Value into a host Go value. A server Error
// value is never returned as data: it is classified (rediserr.Classify) and
// returned as an error instead. Materialize never retains a reference into
// the buffer the Value's bulk strings were sliced from: every BulkString
// payload is copied here, so the connection may reuse its read buffer as
// soon as the call returns.
func Materialize(v Value, opts Options) (any, error) {
	switch v.Kind {
	case KindError:
		return nil, rediserr.Classify(v.ErrorText())

	case KindNull:
		return nil, nil

	case KindSimpleString:
		return string(v.Str), nil

	case KindBigNumber:
		return string(v.Str), nil

	case KindInteger:
		return v.Int, nil

	case KindDouble:
		return v.Dbl, nil

	case KindBoolean:
		return v.Bool, nil

	case KindVerbatim:
		return VerbatimString{Format: v.VerbatimFormat, Text: string(v.Str)}, nil

	case KindBulkString:
		if v.Null {
			return nil, nil
		}
		return decodeBulk(v.Str, opts), nil

	case KindArray, KindSet:
		if v.Null {
			return nil, nil
		}
		out := make([]any, len(v.Arr))
		for i, elem := range v.Arr {
			mv, err := Materialize(elem, opts)
			if err != nil {
				return nil, err
			}
			out[i] = mv
		}
		return out, nil

	case KindPush:
		if v.Null {
			return PushMessage(nil), nil
		}
		out := make(PushMessage, len(v.Arr))
		for i, elem := range v.Arr {
			mv, err := Materialize(elem, opts)
			if err != nil {
				return nil, err
			}
			out[i] = mv
		}
		return out, nil

	case KindMap:
		// Flattened to alternating key/value to preserve wire ordering and
		// duplicate keys; callers wanting a true mapping convert
		// client-side.
		out := make([]any, 0, len(v.Map)*2)
		for _, pair := range v.Map {
			mk, err := Materialize(pair.Key, opts)
			if err != nil {
				return nil, err
			}
			mv, err := Materialize(pair.Val, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, mk, mv)
		}
		return out, nil

	default:
		return nil, rediserr.NewProtocolError("unmaterializable RESP kind", nil)
	}
}

func decodeBulk(b []byte, opts Options) any {
	if !opts.DecodeResponses {
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp
	}
	if utf8.Valid(b) {
		return string(b)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
