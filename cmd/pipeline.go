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
	"strings"

	"github.com/spf13/cobra"
)

var pipelineCommands []string

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Queue multiple commands on one connection and print the ordered replies",
	Run: func(cmd *cobra.Command, args []string) {
		if len(pipelineCommands) == 0 {
			fmt.Fprintln(os.Stderr, "at least one --cmd is required")
			os.Exit(1)
		}

		_, app, err := loadAppConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		client := newClient(app)
		defer client.Close()

		p := client.Pipeline()
		for _, raw := range pipelineCommands {
			p.Command(strings.Fields(raw)...)
		}

		results, err := p.Execute(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		for i, r := range results {
			fmt.Printf("%d) %s\n", i+1, formatValue(r))
		}
		if err != nil {
			os.Exit(1)
		}
	},
	Example: `# rediswire-cli pipeline --cmd "SET foo bar" --cmd "GET foo"`,
}

func init() {
	pipelineCmd.Flags().StringArrayVar(&pipelineCommands, "cmd", nil, "Command to queue, repeatable")
	rootCmd.AddCommand(pipelineCmd)
}
