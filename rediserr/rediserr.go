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

// Package rediserr implements the client's error taxonomy: a root error
// all client-visible errors descend from, a server-side subtree reached by
// classifying the prefix of a RESP error reply, and the
// transport/protocol/graph siblings raised by the other layers.
package rediserr

import "fmt"

// Kind tags which branch of the taxonomy an error belongs to.
type Kind string

const (
	KindConnection     Kind = "ConnectionError"
	KindTimeout        Kind = "TimeoutError"
	KindProtocol       Kind = "ProtocolError"
	KindGraph          Kind = "GraphError"
	KindCluster        Kind = "ClusterError"
	KindSentinel       Kind = "SentinelError"
	KindResponse       Kind = "ResponseError"
	KindWrongType      Kind = "WrongTypeError"
	KindReadOnly       Kind = "ReadOnlyError"
	KindNoScript       Kind = "NoScriptError"
	KindBusy           Kind = "BusyError"
	KindClusterDown    Kind = "ClusterDownError"
	KindAuthentication Kind = "AuthenticationError"
)

// Error is the common root every error this module raises satisfies.
//
// Error.Unwrap exposes the underlying cause (an I/O error, a pkg/errors
// wrapped stack, or nil for a pure server reply) so callers may still use
// errors.Is/errors.As against transport-level causes.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewConnectionError(msg string, cause error) *Error { return new(KindConnection, msg, cause) }
func NewTimeoutError(msg string, cause error) *Error    { return new(KindTimeout, msg, cause) }
func NewProtocolError(msg string, cause error) *Error   { return new(KindProtocol, msg, cause) }
func NewGraphError(msg string, cause error) *Error      { return new(KindGraph, msg, cause) }
func NewClusterError(msg string) *Error                 { return new(KindCluster, msg, nil) }
func NewSentinelError(msg string) *Error                { return new(KindSentinel, msg, nil) }

// IsBroken reports whether an error means the connection it came from
// must be discarded rather than returned to the pool: only transport-class
// errors (connection/timeout/protocol) qualify.
func IsBroken(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindConnection, KindTimeout, KindProtocol:
		return true
	default:
		return false
	}
}

// prefixKind maps a RESP error reply's leading word to a taxonomy Kind.
// Unknown prefixes degrade to KindResponse without losing the message
// text.
var prefixKind = map[string]Kind{
	"WRONGTYPE":   KindWrongType,
	"NOSCRIPT":    KindNoScript,
	"READONLY":    KindReadOnly,
	"BUSY":        KindBusy,
	"CLUSTERDOWN": KindClusterDown,
	"MOVED":       KindCluster,
	"ASK":         KindCluster,
	"NOAUTH":      KindAuthentication,
	"WRONGPASS":   KindAuthentication,
}

// Classify splits a server error's text on its first space to find the
// prefix and maps that prefix to a taxonomy Kind, returning an *Error
// carrying the full message. Unknown prefixes classify as KindResponse.
func Classify(text string) *Error {
	prefix := text
	for i, c := range text {
		if c == ' ' {
			prefix = text[:i]
			break
		}
	}
	kind, ok := prefixKind[prefix]
	if !ok {
		kind = KindResponse
	}
	return new(kind, text, nil)
}
