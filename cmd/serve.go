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
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rediswire/rediswire/internal/sigs"
	"github.com/rediswire/rediswire/logger"
	"github.com/rediswire/rediswire/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pool's debug and metrics HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, app, err := loadAppConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		client := newClient(app)
		defer client.Close()

		srv, err := server.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
			os.Exit(1)
		}
		if srv == nil {
			fmt.Fprintln(os.Stderr, "server.enabled is false in config, nothing to serve")
			os.Exit(1)
		}
		srv.RegisterStatsRoute("/stats", client)

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("server exited: %v", err)
			}
		}()

		var reloadTotal int
		for {
			select {
			case <-sigs.Terminate():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					logger.Errorf("server shutdown: %v", err)
				}
				return

			case <-sigs.Reload():
				reloadTotal++

				start := time.Now()
				if _, _, err := loadAppConfig(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to reload config (count=%d): %v\n", reloadTotal, err)
					continue
				}
				logger.Infof("reload (count=%d) take %s", reloadTotal, time.Since(start))
			}
		}
	},
	Example: "# rediswire-cli serve --config rediswire.yaml",
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
