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

package redis

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// urlOverlay captures the query-string knobs a connection URL may carry,
// decoded through mapstructure the same way confengine decodes structured
// config. Unknown query parameters are ignored.
type urlOverlay struct {
	ConnectTimeout int `mapstructure:"connect_timeout"` // seconds
	SocketTimeout  int `mapstructure:"socket_timeout"`  // seconds
	MaxConnections int `mapstructure:"max_connections"`
}

// ParseURL parses a redis:// or rediss:// connection URL into a Config:
// scheme selects SSL, userinfo supplies username/password, the path is the
// numeric db index, and recognized query parameters are layered on top.
// Unrecognized query parameters are ignored rather than rejected.
func ParseURL(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "redis: malformed url")
	}

	var cfg Config
	switch u.Scheme {
	case "redis":
		cfg.SSL = false
	case "rediss":
		cfg.SSL = true
	default:
		return Config{}, errors.Errorf("redis: unsupported url scheme %q", u.Scheme)
	}

	cfg.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, errors.Wrap(err, "redis: malformed port")
		}
		cfg.Port = port
	}

	if u.User != nil {
		cfg.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cfg.Password = pw
		}
	}

	if path := strings.Trim(u.Path, "/"); path != "" {
		db, err := strconv.Atoi(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "redis: malformed db index in path")
		}
		cfg.DB = db
	}

	overlay, err := decodeQuery(u.Query())
	if err != nil {
		return Config{}, err
	}
	if overlay.ConnectTimeout > 0 {
		cfg.ConnectTimeout = time.Duration(overlay.ConnectTimeout) * time.Second
	}
	if overlay.SocketTimeout > 0 {
		cfg.SocketTimeout = time.Duration(overlay.SocketTimeout) * time.Second
	}
	if overlay.MaxConnections > 0 {
		cfg.MaxConnections = overlay.MaxConnections
	}

	return cfg, nil
}

func decodeQuery(q url.Values) (urlOverlay, error) {
	raw := make(map[string]any, len(q))
	for k, v := range q {
		if len(v) == 0 {
			continue
		}
		raw[k] = cast.ToString(v[0])
	}

	var overlay urlOverlay
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &overlay,
	})
	if err != nil {
		return urlOverlay{}, errors.Wrap(err, "redis: building query decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return urlOverlay{}, errors.Wrap(err, "redis: decoding query parameters")
	}
	return overlay, nil
}
