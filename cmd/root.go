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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/rediswire/rediswire/confengine"
	"github.com/rediswire/rediswire/logger"
	"github.com/rediswire/rediswire/redis"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rediswire-cli",
	Short: "A RESP2/RESP3 and FalkorDB-compatible client for redis-server and falkordb",
}

func init() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {})); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to set GOMAXPROCS: %v\n", err)
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "rediswire.yaml", "Configuration file path")
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appConfig is the one place every subcommand's sections live, unpacked
// from a single rediswire.yaml through confengine.
type appConfig struct {
	Redis  redis.Config   `config:"redis"`
	Logger logger.Options `config:"logger"`
}

func loadAppConfig() (*confengine.Config, appConfig, error) {
	cfg, err := confengine.LoadConfigPath(configPath)
	if err != nil {
		return nil, appConfig{}, fmt.Errorf("failed to load config: %w", err)
	}

	var app appConfig
	if cfg.Has("redis") {
		if err := cfg.UnpackChild("redis", &app.Redis); err != nil {
			return nil, appConfig{}, fmt.Errorf("failed to unpack redis config: %w", err)
		}
	}
	if cfg.Has("logger") {
		if err := cfg.UnpackChild("logger", &app.Logger); err != nil {
			return nil, appConfig{}, fmt.Errorf("failed to unpack logger config: %w", err)
		}
	}
	logger.SetOptions(app.Logger)
	return cfg, app, nil
}

func newClient(app appConfig) *redis.Client {
	return redis.New(app.Redis)
}
