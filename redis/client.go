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

// Package redis implements the blocking client surface on top of conn and
// pool: a single ExecuteCommand entry point, batched pipelines, and the
// thin command wrappers.
package redis

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rediswire/rediswire/common"
	"github.com/rediswire/rediswire/conn"
	"github.com/rediswire/rediswire/pool"
	"github.com/rediswire/rediswire/resp"
)

// Config is the public configuration surface for a Client.
type Config struct {
	Host     string `config:"host"`
	Port     int    `config:"port"`
	DB       int    `config:"db"`
	Username string `config:"username"`
	Password string `config:"password"`
	SSL      bool   `config:"ssl"`

	ConnectTimeout time.Duration `config:"connectTimeout"`
	SocketTimeout  time.Duration `config:"socketTimeout"`
	PoolTimeout    time.Duration `config:"poolTimeout"`
	MaxConnections int           `config:"maxConnections"`

	DecodeResponses bool `config:"decodeResponses"`

	// MaxIdleAge bounds how long an idle connection is kept, in seconds;
	// zero disables eviction.
	MaxIdleAge int64 `config:"maxIdleAge"`

	// Tracer, if set, wraps every round trip in a span. Not settable from
	// a config file.
	Tracer trace.Tracer `config:"-"`
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.SocketTimeout == 0 {
		c.SocketTimeout = 5 * time.Second
	}
	if c.PoolTimeout == 0 {
		c.PoolTimeout = c.ConnectTimeout
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = common.Concurrency()
	}
	return c
}

// Client is the blocking, thread-safe entry point. Every ExecuteCommand
// and Pipeline call acquires a pooled Connection, performs I/O, and
// releases it; callers never see a Connection directly.
type Client struct {
	cfg  Config
	pool *pool.Pool
}

// New constructs a Client and its backing Pool. Connections are created
// lazily on first use, so New never dials.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{cfg: cfg}
	poolName := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + strconv.Itoa(cfg.DB)
	c.pool = pool.New(poolName, c.dial, pool.Options{
		MaxSize:    cfg.MaxConnections,
		MaxIdleAge: cfg.MaxIdleAge,
	})
	return c
}

func (c *Client) dial(ctx context.Context) (*conn.Connection, error) {
	address := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	return conn.Dial(ctx, conn.Options{
		Address:        address,
		ConnectTimeout: c.cfg.ConnectTimeout,
		SocketTimeout:  c.cfg.SocketTimeout,
		Username:       c.cfg.Username,
		Password:       c.cfg.Password,
		DB:             c.cfg.DB,
		TLS:            c.cfg.SSL,
	})
}

func (c *Client) respOptions() resp.Options {
	return resp.Options{DecodeResponses: c.cfg.DecodeResponses}
}

// ExecuteCommand is the single request entry point: it acquires a
// connection, sends one frame, materializes the one reply, and releases
// the connection before returning.
func (c *Client) ExecuteCommand(ctx context.Context, args ...string) (any, error) {
	if c.cfg.Tracer != nil {
		var span trace.Span
		ctx, span = c.cfg.Tracer.Start(ctx, "redis.execute")
		defer span.End()
	}

	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.PoolTimeout)
	defer cancel()

	cn, err := c.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(cn)

	out, err := cn.SendPipeline([]resp.Frame{resp.NewFrame(args...)}, c.respOptions())
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// PipelineExecute submits every frame on one connection and returns the
// ordered materialized replies.
func (c *Client) PipelineExecute(ctx context.Context, frames []resp.Frame) ([]any, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.PoolTimeout)
	defer cancel()

	cn, err := c.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(cn)

	return cn.SendPipeline(frames, c.respOptions())
}

// Pipeline returns a new Pipeline bound to this client.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{client: c}
}

// PoolIdleCount, PoolLiveCount, and PoolAvailable expose pool occupancy
// for observability.
func (c *Client) PoolIdleCount() int { return c.pool.IdleCount() }
func (c *Client) PoolLiveCount() int { return c.pool.LiveCount() }
func (c *Client) PoolAvailable() int { return c.pool.Available() }

// Close releases every idle connection the client's pool is holding.
func (c *Client) Close() error { return c.pool.Close() }
