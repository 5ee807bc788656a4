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

package graph

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/rediswire/rediswire/rediserr"
)

// Querier is the minimal surface the registry needs to issue its own
// `CALL db.propertyKeys()`-style queries, implemented by redis.Client. It
// lives in this package (rather than the registry depending on redis
// directly) to avoid an import cycle between graph and redis.
type Querier interface {
	GraphQuery(ctx context.Context, graphKey, query string) (any, error)
}

type category int

const (
	categoryPropertyKey category = iota
	categoryLabel
	categoryRelType
)

func (c category) query() string {
	switch c {
	case categoryPropertyKey:
		return `CALL db.propertyKeys()`
	case categoryLabel:
		return `CALL db.labels()`
	default:
		return `CALL db.relationshipTypes()`
	}
}

// numShards bounds lock contention across unrelated graph names; each
// shard owns its own mutex and map so resolving registries for graph "a"
// never blocks a concurrent resolution for graph "b" sharing a shard
// (barring a hash collision).
const numShards = 32

type registryShard struct {
	mu     sync.Mutex
	graphs map[string]*graphEntry
}

// graphEntry holds the three id->name caches for one graph name, with its
// own lock so concurrent decoders for the *same* graph don't
// double-refresh; refreshes are idempotent, so whoever loses the race just
// re-reads a fresh cache.
type graphEntry struct {
	mu           sync.Mutex
	propertyKeys []string
	labels       []string
	relTypes     []string
}

// Registry caches id->name lookups for property keys, labels, and
// relationship types, sharded by graph name.
type Registry struct {
	shards [numShards]*registryShard
}

// NewRegistry builds an empty Registry ready for concurrent use.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{graphs: make(map[string]*graphEntry)}
	}
	return r
}

func (r *Registry) entry(graphName string) *graphEntry {
	shard := r.shards[xxhash.Sum64String(graphName)%numShards]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	e, ok := shard.graphs[graphName]
	if !ok {
		e = &graphEntry{}
		shard.graphs[graphName] = e
	}
	return e
}

func (e *graphEntry) slice(cat category) []string {
	switch cat {
	case categoryPropertyKey:
		return e.propertyKeys
	case categoryLabel:
		return e.labels
	default:
		return e.relTypes
	}
}

func (e *graphEntry) setSlice(cat category, names []string) {
	switch cat {
	case categoryPropertyKey:
		e.propertyKeys = names
	case categoryLabel:
		e.labels = names
	default:
		e.relTypes = names
	}
}

// resolve returns the name for id within the given category, refreshing
// the cache from the server at most once if id is out of range. An id that
// remains out of range after a successful refresh yields a GraphError.
func (r *Registry) resolve(ctx context.Context, q Querier, graphName string, cat category, id int64) (string, error) {
	e := r.entry(graphName)
	e.mu.Lock()
	defer e.mu.Unlock()

	if names := e.slice(cat); id >= 0 && int(id) < len(names) {
		return names[id], nil
	}

	names, err := fetchNames(ctx, q, graphName, cat.query())
	if err != nil {
		return "", rediserr.NewGraphError("registry refresh failed", err)
	}
	e.setSlice(cat, names)

	if id < 0 || int(id) >= len(names) {
		return "", rediserr.NewGraphError("id out of range after registry refresh", nil)
	}
	return names[id], nil
}

// Refresh unconditionally repopulates all three categories for graphName in
// one call, the "warm the cache before a batch of queries" counterpart to
// resolve's lazy, one-category-at-a-time refresh. The three fetches are
// independent requests to the server, so a failure in one (e.g. the
// relationship-types query timing out) must not prevent the other two from
// updating the cache; every per-category failure is collected into a single
// aggregated error rather than aborting on the first.
func (r *Registry) Refresh(ctx context.Context, q Querier, graphName string) error {
	e := r.entry(graphName)
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs *multierror.Error
	for _, cat := range []category{categoryPropertyKey, categoryLabel, categoryRelType} {
		names, err := fetchNames(ctx, q, graphName, cat.query())
		if err != nil {
			errs = multierror.Append(errs, rediserr.NewGraphError("registry batch refresh failed", err))
			continue
		}
		e.setSlice(cat, names)
	}
	return errs.ErrorOrNil()
}

// fetchNames issues query against graphName and extracts the first column
// of every row as a string, the shape db.propertyKeys()/labels()/
// relationshipTypes() reply with.
func fetchNames(ctx context.Context, q Querier, graphName, query string) ([]string, error) {
	reply, err := q.GraphQuery(ctx, graphName, query)
	if err != nil {
		return nil, err
	}

	top, ok := reply.([]any)
	if !ok || len(top) < 2 {
		return nil, rediserr.NewGraphError("malformed registry reply", nil)
	}
	rows, ok := top[1].([]any)
	if !ok {
		return nil, rediserr.NewGraphError("malformed registry reply rows", nil)
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) == 0 {
			continue
		}
		cell, err := decodeCell(ctx, q, graphName, row[0], nil)
		if err != nil {
			return nil, err
		}
		names = append(names, cell.Str)
	}
	return names, nil
}
