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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rediswire/rediswire/common"
	"github.com/rediswire/rediswire/graph"
)

var (
	graphKey     string
	warmCache    bool
	graphTimeout int
)

var graphQueryCmd = &cobra.Command{
	Use:   "graph-query [cypher query]",
	Short: "Run GRAPH.QUERY against a FalkorDB graph and print the decoded result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if graphKey == "" {
			fmt.Fprintln(os.Stderr, "--graph is required")
			os.Exit(1)
		}

		_, app, err := loadAppConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		client := newClient(app)
		defer client.Close()

		ctx := context.Background()
		reg := graph.NewRegistry()

		// --warm-cache front-loads all three id->name categories in one
		// round before the query runs, rather than paying for each
		// category's refresh lazily mid-decode the first time an unknown
		// id is seen.
		if warmCache {
			if err := reg.Refresh(ctx, client, graphKey); err != nil {
				fmt.Fprintln(os.Stderr, "warning: registry warm-up:", err)
			}
		}

		opts := common.NewOptions()
		if graphTimeout > 0 {
			opts.Merge("timeout", graphTimeout)
		}

		reply, err := client.GraphQueryWithOptions(ctx, graphKey, args[0], opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		result, err := graph.Decode(ctx, client, graphKey, reply, reg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printGraphResult(result)
	},
	Example: `# rediswire-cli graph-query --graph social "MATCH (n) RETURN n"`,
}

func init() {
	graphQueryCmd.Flags().StringVar(&graphKey, "graph", "", "Graph key to query")
	graphQueryCmd.Flags().BoolVar(&warmCache, "warm-cache", false, "Pre-fetch property key, label, and relationship type names before running the query")
	graphQueryCmd.Flags().IntVar(&graphTimeout, "timeout", 0, "Server-side query timeout in milliseconds, 0 means no TIMEOUT argument")
	rootCmd.AddCommand(graphQueryCmd)
}
