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

package server

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rediswire/rediswire/common"
)

// PoolStats is the minimal surface a redis.Client exposes for the stats
// route; kept local to avoid server importing redis (which would import
// server back through no path today, but the indirection keeps the debug
// server usable for any future pooled component).
type PoolStats interface {
	PoolIdleCount() int
	PoolLiveCount() int
	PoolAvailable() int
}

type statsBody struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	StartedAt int64  `json:"started_at"`
	Idle      int    `json:"pool_idle"`
	Live      int    `json:"pool_live"`
	Available int    `json:"pool_available"`
}

// RegisterStatsRoute exposes pool occupancy as JSON at path.
func (s *Server) RegisterStatsRoute(path string, pool PoolStats) {
	s.RegisterGetRoute(path, func(w http.ResponseWriter, r *http.Request) {
		body := statsBody{
			App:       common.App,
			Version:   common.Version,
			StartedAt: common.Started(),
			Idle:      pool.PoolIdleCount(),
			Live:      pool.PoolLiveCount(),
			Available: pool.PoolAvailable(),
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		if err := enc.Encode(body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
