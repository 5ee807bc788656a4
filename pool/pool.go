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

// Package pool implements a bounded connection pool: a semaphore gates
// admission up to MaxSize, idle connections are handed out warmest-first,
// and unhealthy connections are dropped rather than recycled.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"

	"github.com/rediswire/rediswire/common"
	"github.com/rediswire/rediswire/conn"
	"github.com/rediswire/rediswire/internal/rescue"
	"github.com/rediswire/rediswire/rediserr"
)

// Dialer creates a new Connection. It is always invoked outside of the
// pool's lock, so a slow dial never blocks other acquisitions.
type Dialer func(ctx context.Context) (*conn.Connection, error)

// Options configures Pool behavior.
type Options struct {
	MaxSize int

	// MaxIdleAge, when non-zero, evicts idle connections that have sat
	// unused longer than this many seconds.
	MaxIdleAge int64
}

// idleConnectionsVec and liveConnectionsVec are package-level and
// registered once. WithLabelValues(name) hands back the same
// *prometheus.Gauge on every call for a given name, so constructing many
// Pools (including repeatedly, as tests do) never attempts a second
// registration of the same collector the way a fresh promauto.NewGauge per
// call would.
var (
	idleConnectionsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "pool",
		Name:      "idle_connections",
		Help:      "idle connections currently held by the pool",
	}, []string{"pool"})

	liveConnectionsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "pool",
		Name:      "live_connections",
		Help:      "live connections currently owned by the pool",
	}, []string{"pool"})
)

// Pool is a bounded set of Connections gated by a counting semaphore. The
// semaphore, not a plain mutex, gives FIFO fairness among waiters for
// free.
type Pool struct {
	opt  Options
	dial Dialer
	sem  *semaphore.Weighted
	name string

	mu   sync.Mutex
	idle []*conn.Connection // LIFO: idle[len-1] is the most recently released
	live int

	idleGauge prometheus.Gauge
	liveGauge prometheus.Gauge

	stopEviction chan struct{}
	closeOnce    sync.Once
}

// New builds a Pool with the given dialer and options. name labels the
// pool's Prometheus metrics so multiple pools (e.g. one per logical
// database) don't collide.
func New(name string, dial Dialer, opt Options) *Pool {
	if opt.MaxSize <= 0 {
		opt.MaxSize = 1
	}
	p := &Pool{
		opt:       opt,
		dial:      dial,
		sem:       semaphore.NewWeighted(int64(opt.MaxSize)),
		name:      name,
		idleGauge: idleConnectionsVec.WithLabelValues(name),
		liveGauge: liveConnectionsVec.WithLabelValues(name),
	}

	if opt.MaxIdleAge > 0 {
		p.stopEviction = make(chan struct{})
		go p.evictLoop()
	}
	return p
}

// evictLoop periodically drops idle connections that have outlived
// MaxIdleAge, independent of any Acquire call. Every goroutine the pool
// spawns recovers through internal/rescue.
func (p *Pool) evictLoop() {
	defer rescue.HandleCrash()

	interval := time.Duration(p.opt.MaxIdleAge) * time.Second / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictStale()
		case <-p.stopEviction:
			return
		}
	}
}

// evictStale removes idle connections older than MaxIdleAge. Their
// semaphore permits were already returned to the pool when they were
// released into idle, so only live accounting changes here.
func (p *Pool) evictStale() {
	p.mu.Lock()
	kept := p.idle[:0]
	var stale []*conn.Connection
	for _, c := range p.idle {
		if c.IdleFor() > p.opt.MaxIdleAge {
			stale = append(stale, c)
		} else {
			kept = append(kept, c)
		}
	}
	p.idle = kept
	p.idleGauge.Set(float64(len(p.idle)))
	p.live -= len(stale)
	p.liveGauge.Set(float64(p.live))
	p.mu.Unlock()

	for _, c := range stale {
		_ = c.Close()
	}
}

// Acquire blocks until a permit is available (or ctx is done), then
// returns an idle connection if one exists, otherwise dials a new one.
func (p *Pool) Acquire(ctx context.Context) (*conn.Connection, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, rediserr.NewTimeoutError("pool acquire timed out", err)
	}

	for {
		p.mu.Lock()
		if n := len(p.idle); n > 0 {
			c := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.idleGauge.Set(float64(len(p.idle)))
			p.mu.Unlock()

			if p.opt.MaxIdleAge > 0 && c.IdleFor() > p.opt.MaxIdleAge {
				p.drop(c)
				continue // permit stays held; try the next idle conn or create
			}
			return c, nil
		}

		if p.live >= p.opt.MaxSize {
			// Shouldn't happen: the semaphore already bounds concurrent
			// holders to MaxSize. Defensive against a miscounted live.
			p.mu.Unlock()
			return nil, rediserr.NewConnectionError("pool exhausted", nil)
		}
		p.live++
		p.liveGauge.Set(float64(p.live))
		p.mu.Unlock()

		c, err := p.dial(ctx)
		if err != nil {
			p.mu.Lock()
			p.live--
			p.liveGauge.Set(float64(p.live))
			p.mu.Unlock()
			p.sem.Release(1)
			return nil, err
		}
		return c, nil
	}
}

// Release returns c to the pool. A broken connection is dropped and its
// live slot freed; a healthy one rejoins the idle LIFO. The semaphore
// permit is returned exactly once regardless of health.
func (p *Pool) Release(c *conn.Connection) {
	if c.IsBroken() {
		p.drop(c)
		p.sem.Release(1)
		return
	}

	p.mu.Lock()
	p.idle = append(p.idle, c)
	p.idleGauge.Set(float64(len(p.idle)))
	p.mu.Unlock()
	p.sem.Release(1)
}

// drop closes c and decrements live without touching the semaphore; callers
// that already hold a permit for c must release it themselves.
func (p *Pool) drop(c *conn.Connection) {
	_ = c.Close()
	p.mu.Lock()
	p.live--
	p.liveGauge.Set(float64(p.live))
	p.mu.Unlock()
}

// IdleCount reports the number of idle connections currently held.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// LiveCount reports the number of connections currently owned by the pool,
// idle or checked out.
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Available reports how many more acquisitions could proceed without
// blocking: idle connections plus room to dial new ones.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opt.MaxSize - (p.live - len(p.idle))
}

// Close drops every idle connection, collecting every close error into one
// multierror.Error rather than discarding all but the last. Connections
// currently checked out are left to their callers. Close does not mark the
// pool as closed: a healthy connection released afterwards rejoins the idle
// list, and a later Acquire still dials new connections.
func (p *Pool) Close() error {
	if p.stopEviction != nil {
		p.closeOnce.Do(func() { close(p.stopEviction) })
	}

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var result *multierror.Error
	for _, c := range idle {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
