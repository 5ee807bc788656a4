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
	"fmt"
	"strconv"

	"github.com/rediswire/rediswire/rediserr"
)

// Decode parses the three-element compact reply GRAPH.QUERY ... --compact
// produces into a Result, resolving label/property-key/relationship-type
// ids against reg as it walks. reply is the already materialized reply:
// Decode never re-parses wire bytes and never layers a second generic
// representation on top of the host-value tree resp.Materialize produced.
func Decode(ctx context.Context, q Querier, graphName string, reply any, reg *Registry) (*Result, error) {
	top, ok := reply.([]any)
	if !ok || len(top) < 3 {
		return nil, rediserr.NewGraphError("malformed compact graph reply", nil)
	}

	header, err := decodeHeader(top[0])
	if err != nil {
		return nil, err
	}

	rowsRaw, ok := top[1].([]any)
	if !ok {
		return nil, rediserr.NewGraphError("malformed compact graph rows", nil)
	}
	rows := make([][]Cell, len(rowsRaw))
	for i, rr := range rowsRaw {
		cellsRaw, ok := rr.([]any)
		if !ok {
			return nil, rediserr.NewGraphError("malformed compact graph row", nil)
		}
		cells := make([]Cell, len(cellsRaw))
		for j, cr := range cellsRaw {
			c, err := decodeCell(ctx, q, graphName, cr, reg)
			if err != nil {
				return nil, err
			}
			cells[j] = c
		}
		rows[i] = cells
	}

	stats := decodeStats(top[2])

	return &Result{Header: header, Rows: rows, Stats: stats}, nil
}

func decodeHeader(raw any) ([]Column, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, rediserr.NewGraphError("malformed compact graph header", nil)
	}
	cols := make([]Column, len(arr))
	for i, c := range arr {
		pair, ok := c.([]any)
		if !ok || len(pair) < 2 {
			return nil, rediserr.NewGraphError("malformed compact graph header column", nil)
		}
		cols[i] = Column{Kind: ColumnKind(toInt64(pair[0])), Name: toString(pair[1])}
	}
	return cols, nil
}

func decodeStats(raw any) []string {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(arr))
	for i, s := range arr {
		out[i] = toString(s)
	}
	return out
}

// decodeCell unwraps one [type_code, payload] pair into a typed Cell.
func decodeCell(ctx context.Context, q Querier, graphName string, raw any, reg *Registry) (Cell, error) {
	pair, ok := raw.([]any)
	if !ok || len(pair) < 2 {
		return Cell{}, rediserr.NewGraphError("malformed compact graph cell", nil)
	}
	return decodeByType(ctx, q, graphName, toInt64(pair[0]), pair[1], reg)
}

func decodeByType(ctx context.Context, q Querier, graphName string, typeCode int64, payload any, reg *Registry) (Cell, error) {
	switch typeCode {
	case 1:
		return Cell{Kind: CellNull}, nil
	case 2:
		return Cell{Kind: CellString, Str: toString(payload)}, nil
	case 3:
		return Cell{Kind: CellInteger, Int: toInt64(payload)}, nil
	case 4:
		return Cell{Kind: CellBoolean, Bool: toString(payload) == "true"}, nil
	case 5:
		f, err := toFloat64(payload)
		if err != nil {
			return Cell{}, rediserr.NewGraphError("malformed double cell", err)
		}
		return Cell{Kind: CellDouble, Dbl: f}, nil
	case 6:
		return decodeArrayCell(ctx, q, graphName, payload, reg)
	case 7:
		return decodeEdgeCell(ctx, q, graphName, payload, reg)
	case 8:
		return decodeNodeCell(ctx, q, graphName, payload, reg)
	case 9:
		return decodePathCell(ctx, q, graphName, payload, reg)
	case 10:
		return decodeMapCell(ctx, q, graphName, payload, reg)
	case 11:
		return decodePointCell(payload)
	case 12:
		return decodeVectorCell(payload)
	default:
		return Cell{}, rediserr.NewGraphError(fmt.Sprintf("unknown graph cell type code %d", typeCode), nil)
	}
}

func decodeArrayCell(ctx context.Context, q Querier, graphName string, payload any, reg *Registry) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok {
		return Cell{}, rediserr.NewGraphError("malformed array cell", nil)
	}
	cells := make([]Cell, len(arr))
	for i, e := range arr {
		c, err := decodeCell(ctx, q, graphName, e, reg)
		if err != nil {
			return Cell{}, err
		}
		cells[i] = c
	}
	return Cell{Kind: CellArray, Arr: cells}, nil
}

func decodeEdgeCell(ctx context.Context, q Querier, graphName string, payload any, reg *Registry) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok || len(arr) < 5 {
		return Cell{}, rediserr.NewGraphError("malformed edge cell", nil)
	}
	typeName, err := reg.resolve(ctx, q, graphName, categoryRelType, toInt64(arr[1]))
	if err != nil {
		return Cell{}, err
	}
	props, err := decodeProperties(ctx, q, graphName, arr[4], reg)
	if err != nil {
		return Cell{}, err
	}
	edge := &Edge{
		ID:         toInt64(arr[0]),
		Type:       typeName,
		SrcID:      toInt64(arr[2]),
		DstID:      toInt64(arr[3]),
		Properties: props,
	}
	return Cell{Kind: CellEdge, Edge: edge}, nil
}

func decodeNodeCell(ctx context.Context, q Querier, graphName string, payload any, reg *Registry) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok || len(arr) < 3 {
		return Cell{}, rediserr.NewGraphError("malformed node cell", nil)
	}
	labelIDs, ok := arr[1].([]any)
	if !ok {
		return Cell{}, rediserr.NewGraphError("malformed node label list", nil)
	}
	labels := make([]string, len(labelIDs))
	for i, id := range labelIDs {
		name, err := reg.resolve(ctx, q, graphName, categoryLabel, toInt64(id))
		if err != nil {
			return Cell{}, err
		}
		labels[i] = name
	}
	props, err := decodeProperties(ctx, q, graphName, arr[2], reg)
	if err != nil {
		return Cell{}, err
	}
	node := &Node{ID: toInt64(arr[0]), Labels: labels, Properties: props}
	return Cell{Kind: CellNode, Node: node}, nil
}

func decodePathCell(ctx context.Context, q Querier, graphName string, payload any, reg *Registry) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok || len(arr) < 2 {
		return Cell{}, rediserr.NewGraphError("malformed path cell", nil)
	}
	nodesCell, err := decodeCell(ctx, q, graphName, arr[0], reg)
	if err != nil {
		return Cell{}, err
	}
	edgesCell, err := decodeCell(ctx, q, graphName, arr[1], reg)
	if err != nil {
		return Cell{}, err
	}
	path := &Path{
		Nodes: make([]Node, 0, len(nodesCell.Arr)),
		Edges: make([]Edge, 0, len(edgesCell.Arr)),
	}
	for _, c := range nodesCell.Arr {
		if c.Node != nil {
			path.Nodes = append(path.Nodes, *c.Node)
		}
	}
	for _, c := range edgesCell.Arr {
		if c.Edge != nil {
			path.Edges = append(path.Edges, *c.Edge)
		}
	}
	return Cell{Kind: CellPath, Path: path}, nil
}

func decodeMapCell(ctx context.Context, q Querier, graphName string, payload any, reg *Registry) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok {
		return Cell{}, rediserr.NewGraphError("malformed map cell", nil)
	}
	entries := make([]MapEntry, 0, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		val, err := decodeCell(ctx, q, graphName, arr[i+1], reg)
		if err != nil {
			return Cell{}, err
		}
		entries = append(entries, MapEntry{Key: toString(arr[i]), Value: val})
	}
	return Cell{Kind: CellMap, Map: entries}, nil
}

func decodePointCell(payload any) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok || len(arr) < 2 {
		return Cell{}, rediserr.NewGraphError("malformed point cell", nil)
	}
	lat, err := toFloat64(arr[0])
	if err != nil {
		return Cell{}, rediserr.NewGraphError("malformed point latitude", err)
	}
	lon, err := toFloat64(arr[1])
	if err != nil {
		return Cell{}, rediserr.NewGraphError("malformed point longitude", err)
	}
	return Cell{Kind: CellPoint, Point: [2]float64{lat, lon}}, nil
}

func decodeVectorCell(payload any) (Cell, error) {
	arr, ok := payload.([]any)
	if !ok {
		return Cell{}, rediserr.NewGraphError("malformed vector cell", nil)
	}
	vals := make([]float64, len(arr))
	for i, v := range arr {
		f, err := toFloat64(v)
		if err != nil {
			return Cell{}, rediserr.NewGraphError("malformed vector element", err)
		}
		vals[i] = f
	}
	return Cell{Kind: CellVector, Vector: vals}, nil
}

func decodeProperties(ctx context.Context, q Querier, graphName string, raw any, reg *Registry) ([]Property, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	props := make([]Property, 0, len(arr))
	for _, p := range arr {
		triple, ok := p.([]any)
		if !ok || len(triple) < 3 {
			return nil, rediserr.NewGraphError("malformed property entry", nil)
		}
		keyName, err := reg.resolve(ctx, q, graphName, categoryPropertyKey, toInt64(triple[0]))
		if err != nil {
			return nil, err
		}
		val, err := decodeByType(ctx, q, graphName, toInt64(triple[1]), triple[2], reg)
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Key: keyName, Value: val})
	}
	return props, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(t, 64)
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	default:
		return 0, fmt.Errorf("unsupported numeric payload %T", t)
	}
}
