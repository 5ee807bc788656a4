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

// Package graph implements the FalkorDB compact graph-result decoder: it
// reconstructs typed cells from the GRAPH.QUERY ... --compact reply in a
// single traversal of the already materialized reply, resolving
// property/label/relationship-type ids against per-graph registries as it
// goes.
package graph

// CellKind tags which of the twelve compact-format variants a Cell holds.
type CellKind int

const (
	CellNull CellKind = iota
	CellString
	CellInteger
	CellBoolean
	CellDouble
	CellArray
	CellEdge
	CellNode
	CellPath
	CellMap
	CellPoint
	CellVector
)

// Cell is the typed, decoded form of one compact-format reply cell.
type Cell struct {
	Kind CellKind

	Str  string
	Int  int64
	Bool bool
	Dbl  float64

	Arr  []Cell
	Node *Node
	Edge *Edge
	Path *Path
	Map  []MapEntry

	Point  [2]float64
	Vector []float64
}

// MapEntry is one key/cell pair of a compact Map cell (type code 10).
type MapEntry struct {
	Key   string
	Value Cell
}

// Property is one resolved node/edge property: a key name (resolved from
// the per-graph property-key registry) and its cell value.
type Property struct {
	Key   string
	Value Cell
}

// Node is a decoded graph node: its internal id, resolved label names, and
// resolved properties.
type Node struct {
	ID         int64
	Labels     []string
	Properties []Property
}

// Edge is a decoded graph relationship: its internal id, resolved
// relationship-type name, endpoint node ids, and resolved properties.
type Edge struct {
	ID         int64
	Type       string
	SrcID      int64
	DstID      int64
	Properties []Property
}

// Path is a decoded graph path: its constituent nodes and edges in order.
type Path struct {
	Nodes []Node
	Edges []Edge
}

// ColumnKind tags a header column's type.
type ColumnKind int

const (
	ColumnUnknown ColumnKind = iota
	ColumnScalar
	ColumnNode
	ColumnRelation
)

// Column is one resolved header entry.
type Column struct {
	Kind ColumnKind
	Name string
}

// Result is the decoder's output: resolved header, typed rows, and the
// server's human-readable stats strings.
type Result struct {
	Header []Column
	Rows   [][]Cell
	Stats  []string
}
