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

// This file implements the thin command wrappers: format arguments, call
// ExecuteCommand, reshape the single materialized reply. No wrapper here
// does its own I/O or touches the wire layer directly.
package redis

import (
	"context"
	"strconv"

	"github.com/rediswire/rediswire/common"
)

// Set implements SET key value [EX seconds] [NX|XX]. An "OK" reply from a
// typed wrapper surfaces as true rather than the raw text; a conditional
// SET (NX/XX) that doesn't apply surfaces its null bulk reply as nil. The
// generic ExecuteCommand is unaffected and still returns the raw "OK"
// text.
func (c *Client) Set(ctx context.Context, key, value string, opts ...string) (any, error) {
	args := append([]string{"SET", key, value}, opts...)
	out, err := c.ExecuteCommand(ctx, args...)
	if err != nil {
		return nil, err
	}
	return reshapeSetReply(out), nil
}

func reshapeSetReply(v any) any {
	if s, ok := v.(string); ok && s == "OK" {
		return true
	}
	return v
}

// Get implements GET key.
func (c *Client) Get(ctx context.Context, key string) (any, error) {
	return c.ExecuteCommand(ctx, "GET", key)
}

// Del implements DEL key [key ...].
func (c *Client) Del(ctx context.Context, keys ...string) (any, error) {
	return c.ExecuteCommand(ctx, append([]string{"DEL"}, keys...)...)
}

// Exists implements EXISTS key [key ...].
func (c *Client) Exists(ctx context.Context, keys ...string) (any, error) {
	return c.ExecuteCommand(ctx, append([]string{"EXISTS"}, keys...)...)
}

// Incr implements INCR key.
func (c *Client) Incr(ctx context.Context, key string) (any, error) {
	return c.ExecuteCommand(ctx, "INCR", key)
}

// IncrBy implements INCRBY key increment.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (any, error) {
	return c.ExecuteCommand(ctx, "INCRBY", key, strconv.FormatInt(delta, 10))
}

// Expire implements EXPIRE key seconds.
func (c *Client) Expire(ctx context.Context, key string, seconds int64) (any, error) {
	return c.ExecuteCommand(ctx, "EXPIRE", key, strconv.FormatInt(seconds, 10))
}

// TTL implements TTL key.
func (c *Client) TTL(ctx context.Context, key string) (any, error) {
	return c.ExecuteCommand(ctx, "TTL", key)
}

// HSet implements HSET key field value.
func (c *Client) HSet(ctx context.Context, key, field, value string) (any, error) {
	return c.ExecuteCommand(ctx, "HSET", key, field, value)
}

// HGet implements HGET key field.
func (c *Client) HGet(ctx context.Context, key, field string) (any, error) {
	return c.ExecuteCommand(ctx, "HGET", key, field)
}

// HGetAll implements HGETALL key, returned as the flat key/value sequence
// RESP3 maps materialize into, or the equivalent RESP2 array.
func (c *Client) HGetAll(ctx context.Context, key string) (any, error) {
	return c.ExecuteCommand(ctx, "HGETALL", key)
}

// HDel implements HDEL key field [field ...].
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (any, error) {
	return c.ExecuteCommand(ctx, append([]string{"HDEL", key}, fields...)...)
}

// GraphQuery implements GRAPH.QUERY graph_key query --compact, the entry
// point the graph package's decoder operates on. It returns the
// materialized three-element reply undecoded by graph semantics; callers
// wanting typed cells pass the result to graph.Decode.
func (c *Client) GraphQuery(ctx context.Context, graphKey, query string) (any, error) {
	return c.ExecuteCommand(ctx, "GRAPH.QUERY", graphKey, query, "--compact")
}

// GraphQueryWithOptions is GraphQuery with an option bag appended to the
// command. Recognized keys: "timeout" (milliseconds, becomes the server-side
// TIMEOUT argument).
func (c *Client) GraphQueryWithOptions(ctx context.Context, graphKey, query string, opts common.Options) (any, error) {
	args := []string{"GRAPH.QUERY", graphKey, query, "--compact"}
	if _, ok := opts["timeout"]; ok {
		timeout, err := opts.GetInt("timeout")
		if err != nil {
			return nil, err
		}
		args = append(args, "TIMEOUT", strconv.Itoa(timeout))
	}
	return c.ExecuteCommand(ctx, args...)
}
