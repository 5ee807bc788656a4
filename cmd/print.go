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

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rediswire/rediswire/graph"
	"github.com/rediswire/rediswire/resp"
)

// formatValue renders a materialized reply (resp.Materialize's output) as
// one human-readable line, the way redis-cli prints whatever the wire hands
// back without knowing its shape ahead of time.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "(nil)"
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case resp.VerbatimString:
		return t.Text
	case resp.PushMessage:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatValue(e)
		}
		return "push: [" + strings.Join(parts, ", ") + "]"
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case error:
		return "(error) " + t.Error()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func printValue(v any) {
	fmt.Println(formatValue(v))
}

func formatCell(c graph.Cell) string {
	switch c.Kind {
	case graph.CellNull:
		return "(nil)"
	case graph.CellString:
		return c.Str
	case graph.CellInteger:
		return strconv.FormatInt(c.Int, 10)
	case graph.CellBoolean:
		return strconv.FormatBool(c.Bool)
	case graph.CellDouble:
		return strconv.FormatFloat(c.Dbl, 'g', -1, 64)
	case graph.CellArray:
		parts := make([]string, len(c.Arr))
		for i, e := range c.Arr {
			parts[i] = formatCell(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case graph.CellNode:
		return formatNode(c.Node)
	case graph.CellEdge:
		return formatEdge(c.Edge)
	case graph.CellPath:
		nodes := make([]string, len(c.Path.Nodes))
		for i := range c.Path.Nodes {
			nodes[i] = formatNode(&c.Path.Nodes[i])
		}
		return "path" + "(" + strings.Join(nodes, "->") + ")"
	case graph.CellMap:
		parts := make([]string, len(c.Map))
		for i, e := range c.Map {
			parts[i] = e.Key + ": " + formatCell(e.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case graph.CellPoint:
		return fmt.Sprintf("point(%g, %g)", c.Point[0], c.Point[1])
	case graph.CellVector:
		parts := make([]string, len(c.Vector))
		for i, e := range c.Vector {
			parts[i] = strconv.FormatFloat(e, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "(unknown)"
	}
}

func formatNode(n *graph.Node) string {
	props := make([]string, len(n.Properties))
	for i, p := range n.Properties {
		props[i] = p.Key + ": " + formatCell(p.Value)
	}
	return fmt.Sprintf("(:%s {%s})", strings.Join(n.Labels, ":"), strings.Join(props, ", "))
}

func formatEdge(e *graph.Edge) string {
	props := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		props[i] = p.Key + ": " + formatCell(p.Value)
	}
	return fmt.Sprintf("[:%s {%s}]", e.Type, strings.Join(props, ", "))
}

func printGraphResult(r *graph.Result) {
	names := make([]string, len(r.Header))
	for i, col := range r.Header {
		names[i] = col.Name
	}
	fmt.Println(strings.Join(names, "\t"))

	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = formatCell(c)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}

	for _, s := range r.Stats {
		fmt.Println(s)
	}
}
