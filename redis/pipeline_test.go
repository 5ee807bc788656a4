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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineLenAndReset(t *testing.T) {
	c := New(Config{Host: "127.0.0.1", Port: 0})
	defer c.Close()

	p := c.Pipeline()
	require.Equal(t, 0, p.Len())

	p.Command("SET", "a", "1").Command("SET", "b", "2")
	require.Equal(t, 2, p.Len())

	p.Reset()
	require.Equal(t, 0, p.Len())
}

func TestPipelineCommandChaining(t *testing.T) {
	c := New(Config{Host: "127.0.0.1", Port: 0})
	defer c.Close()

	p := c.Pipeline().Command("GET", "a").Command("GET", "b").Command("GET", "c")
	require.Equal(t, 3, p.Len())
}
