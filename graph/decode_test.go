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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediswire/rediswire/rediserr"
)

// fakeQuerier answers db.propertyKeys()/labels()/relationshipTypes()
// registry calls with fixed tables and counts how many times each was
// issued, so tests can assert refresh-once behavior.
type fakeQuerier struct {
	propertyKeys []string
	labels       []string
	relTypes     []string

	propertyKeyCalls int32
	labelCalls       int32
	relTypeCalls     int32
}

func (f *fakeQuerier) GraphQuery(_ context.Context, _ string, query string) (any, error) {
	names := f.labels
	switch query {
	case `CALL db.propertyKeys()`:
		atomic.AddInt32(&f.propertyKeyCalls, 1)
		names = f.propertyKeys
	case `CALL db.labels()`:
		atomic.AddInt32(&f.labelCalls, 1)
		names = f.labels
	case `CALL db.relationshipTypes()`:
		atomic.AddInt32(&f.relTypeCalls, 1)
		names = f.relTypes
	}
	rows := make([]any, len(names))
	for i, n := range names {
		rows[i] = []any{[]any{int64(2), n}}
	}
	return []any{[]any{}, rows, []any{}}, nil
}

func stringCell(s string) any    { return []any{int64(2), s} }
func intCell(n int64) any        { return []any{int64(3), n} }
func boolCell(b string) any      { return []any{int64(4), b} }
func arrayCell(cells ...any) any { return []any{int64(6), cells} }

func propertyEntry(keyID, typeCode int64, value any) any {
	return []any{keyID, typeCode, value}
}

func TestDecodeScalarCells(t *testing.T) {
	q := &fakeQuerier{}
	reg := NewRegistry()

	reply := []any{
		[]any{[]any{int64(1), "name"}},
		[]any{
			[]any{stringCell("Alice"), intCell(30), boolCell("true")},
		},
		[]any{"Query internal execution time"},
	}

	res, err := Decode(context.Background(), q, "social", reply, reg)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, CellString, row[0].Kind)
	assert.Equal(t, "Alice", row[0].Str)
	assert.Equal(t, CellInteger, row[1].Kind)
	assert.Equal(t, int64(30), row[1].Int)
	assert.Equal(t, CellBoolean, row[2].Kind)
	assert.True(t, row[2].Bool)
	assert.Equal(t, ColumnScalar, res.Header[0].Kind)
	assert.Equal(t, "name", res.Header[0].Name)
}

func TestDecodeNodeCellResolvesLabelsAndProperties(t *testing.T) {
	q := &fakeQuerier{
		labels:       []string{"Person"},
		propertyKeys: []string{"name", "age"},
	}
	reg := NewRegistry()

	nodePayload := []any{
		int64(7),                   // node id
		[]any{int64(0)},            // label ids
		[]any{
			propertyEntry(int64(0), int64(2), "Bob"),
			propertyEntry(int64(1), int64(3), int64(42)),
		},
	}
	reply := []any{
		[]any{[]any{int64(2), "n"}},
		[]any{[]any{[]any{int64(8), nodePayload}}},
		[]any{},
	}

	res, err := Decode(context.Background(), q, "social", reply, reg)
	require.NoError(t, err)
	cell := res.Rows[0][0]
	require.Equal(t, CellNode, cell.Kind)
	require.NotNil(t, cell.Node)
	assert.Equal(t, int64(7), cell.Node.ID)
	assert.Equal(t, []string{"Person"}, cell.Node.Labels)
	require.Len(t, cell.Node.Properties, 2)
	assert.Equal(t, "name", cell.Node.Properties[0].Key)
	assert.Equal(t, "Bob", cell.Node.Properties[0].Value.Str)
	assert.Equal(t, "age", cell.Node.Properties[1].Key)
	assert.Equal(t, int64(42), cell.Node.Properties[1].Value.Int)

	assert.Equal(t, int32(1), atomic.LoadInt32(&q.labelCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&q.propertyKeyCalls))
}

func TestDecodeEdgeCellResolvesRelationshipType(t *testing.T) {
	q := &fakeQuerier{relTypes: []string{"KNOWS"}}
	reg := NewRegistry()

	edgePayload := []any{int64(1), int64(0), int64(10), int64(11), []any{}}
	reply := []any{
		[]any{[]any{int64(3), "e"}},
		[]any{[]any{[]any{int64(7), edgePayload}}},
		[]any{},
	}

	res, err := Decode(context.Background(), q, "social", reply, reg)
	require.NoError(t, err)
	cell := res.Rows[0][0]
	require.Equal(t, CellEdge, cell.Kind)
	assert.Equal(t, "KNOWS", cell.Edge.Type)
	assert.Equal(t, int64(10), cell.Edge.SrcID)
	assert.Equal(t, int64(11), cell.Edge.DstID)
}

func TestRegistryRefreshesOnlyOncePerMiss(t *testing.T) {
	q := &fakeQuerier{labels: []string{"A", "B"}}
	reg := NewRegistry()

	for _, id := range []int64{0, 1, 0, 1} {
		name, err := reg.resolve(context.Background(), q, "g", categoryLabel, id)
		require.NoError(t, err)
		assert.NotEmpty(t, name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&q.labelCalls))
}

func TestRegistryOutOfRangeAfterRefreshIsGraphError(t *testing.T) {
	q := &fakeQuerier{labels: []string{"A"}}
	reg := NewRegistry()

	_, err := reg.resolve(context.Background(), q, "g", categoryLabel, 5)
	assert.Error(t, err)
	var re *rediserr.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, rediserr.KindGraph, re.Kind)
}

func TestRegistryRefreshPopulatesAllThreeCategories(t *testing.T) {
	q := &fakeQuerier{
		propertyKeys: []string{"name", "age"},
		labels:       []string{"Person"},
		relTypes:     []string{"KNOWS"},
	}
	reg := NewRegistry()

	require.NoError(t, reg.Refresh(context.Background(), q, "g"))

	name, err := reg.resolve(context.Background(), q, "g", categoryPropertyKey, 1)
	require.NoError(t, err)
	assert.Equal(t, "age", name)

	label, err := reg.resolve(context.Background(), q, "g", categoryLabel, 0)
	require.NoError(t, err)
	assert.Equal(t, "Person", label)

	// The category caches were already warm, so resolving must not have
	// issued any further queries beyond Refresh's own three.
	assert.Equal(t, int32(1), atomic.LoadInt32(&q.propertyKeyCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&q.labelCalls))
}

// partialFailureQuerier answers labels and relationship types normally but
// always fails the property-keys query, so Refresh's aggregation can be
// exercised: a total failure of one category must not prevent the other two
// from refreshing.
type partialFailureQuerier struct {
	fakeQuerier
}

func (p *partialFailureQuerier) GraphQuery(ctx context.Context, graphName, query string) (any, error) {
	if query == `CALL db.propertyKeys()` {
		return nil, assertError("propertyKeys unavailable")
	}
	return p.fakeQuerier.GraphQuery(ctx, graphName, query)
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestRegistryRefreshAggregatesPartialFailures(t *testing.T) {
	q := &partialFailureQuerier{fakeQuerier{
		labels:   []string{"Person"},
		relTypes: []string{"KNOWS"},
	}}
	reg := NewRegistry()

	err := reg.Refresh(context.Background(), q, "g")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "propertyKeys unavailable")

	label, err := reg.resolve(context.Background(), q, "g", categoryLabel, 0)
	require.NoError(t, err)
	assert.Equal(t, "Person", label)
}

func TestDecodeArrayCells(t *testing.T) {
	q := &fakeQuerier{}
	reg := NewRegistry()

	reply := []any{
		[]any{[]any{int64(1), "mixed"}},
		[]any{
			[]any{
				arrayCell(stringCell("x"), intCell(1)),
			},
		},
		[]any{},
	}
	res, err := Decode(context.Background(), q, "g", reply, reg)
	require.NoError(t, err)
	cell := res.Rows[0][0]
	require.Equal(t, CellArray, cell.Kind)
	require.Len(t, cell.Arr, 2)
	assert.Equal(t, "x", cell.Arr[0].Str)
	assert.Equal(t, int64(1), cell.Arr[1].Int)
}

func TestDecodePathMapPointVectorCells(t *testing.T) {
	q := &fakeQuerier{labels: []string{"Person"}, relTypes: []string{"KNOWS"}}
	reg := NewRegistry()

	node := []any{int64(1), []any{int64(0)}, []any{}}
	edge := []any{int64(5), int64(0), int64(1), int64(2), []any{}}
	pathPayload := []any{
		[]any{int64(6), []any{[]any{int64(8), node}}},
		[]any{int64(6), []any{[]any{int64(7), edge}}},
	}
	mapPayload := []any{"k", stringCell("v")}
	pointPayload := []any{"32.5", "-64.1"}
	vectorPayload := []any{"1.5", "2.5"}

	reply := []any{
		[]any{
			[]any{int64(1), "p"},
			[]any{int64(1), "m"},
			[]any{int64(1), "pt"},
			[]any{int64(1), "vec"},
		},
		[]any{[]any{
			[]any{int64(9), pathPayload},
			[]any{int64(10), mapPayload},
			[]any{int64(11), pointPayload},
			[]any{int64(12), vectorPayload},
		}},
		[]any{},
	}

	res, err := Decode(context.Background(), q, "g", reply, reg)
	require.NoError(t, err)
	row := res.Rows[0]

	require.Equal(t, CellPath, row[0].Kind)
	require.Len(t, row[0].Path.Nodes, 1)
	require.Len(t, row[0].Path.Edges, 1)
	assert.Equal(t, []string{"Person"}, row[0].Path.Nodes[0].Labels)
	assert.Equal(t, "KNOWS", row[0].Path.Edges[0].Type)

	require.Equal(t, CellMap, row[1].Kind)
	require.Len(t, row[1].Map, 1)
	assert.Equal(t, "k", row[1].Map[0].Key)
	assert.Equal(t, "v", row[1].Map[0].Value.Str)

	require.Equal(t, CellPoint, row[2].Kind)
	assert.Equal(t, 32.5, row[2].Point[0])
	assert.Equal(t, -64.1, row[2].Point[1])

	require.Equal(t, CellVector, row[3].Kind)
	assert.Equal(t, []float64{1.5, 2.5}, row[3].Vector)
}

func TestDecodeDoubleAcceptsSpecialValues(t *testing.T) {
	cell, err := decodeByType(context.Background(), nil, "g", 5, "inf", nil)
	require.NoError(t, err)
	assert.True(t, cell.Dbl > 0)

	cell, err = decodeByType(context.Background(), nil, "g", 5, "-inf", nil)
	require.NoError(t, err)
	assert.True(t, cell.Dbl < 0)
}

func TestDecodeMalformedReplyIsGraphError(t *testing.T) {
	_, err := Decode(context.Background(), &fakeQuerier{}, "g", "not a reply", NewRegistry())
	assert.Error(t, err)
	var re *rediserr.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, rediserr.KindGraph, re.Kind)
}
