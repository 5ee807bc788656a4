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
	"context"

	"github.com/rediswire/rediswire/resp"
)

// Pipeline is a growable batch of frames submitted as one round trip. It
// is not safe for concurrent use by multiple goroutines; different
// Pipelines may run concurrently, but one must not be shared.
type Pipeline struct {
	client *Client
	frames []resp.Frame

	// reshape[i], if non-nil, is applied to the i-th raw reply before it's
	// handed back from Execute. This keeps the same wrapper reshaping in
	// effect whether a command is issued directly through Client or queued
	// onto a Pipeline.
	reshape []func(any) any
}

// Command appends one frame to the pipeline and returns the pipeline for
// chaining, mirroring the command wrappers' append-then-return style. Its
// reply is returned from Execute exactly as materialized, with no reshaping.
func (p *Pipeline) Command(args ...string) *Pipeline {
	p.frames = append(p.frames, resp.NewFrame(args...))
	p.reshape = append(p.reshape, nil)
	return p
}

// Set queues a SET command, reshaping its reply exactly as Client.Set does
// for a direct call: "OK" becomes true, a conditional SET's null bulk stays
// nil.
func (p *Pipeline) Set(key, value string, opts ...string) *Pipeline {
	args := append([]string{"SET", key, value}, opts...)
	p.frames = append(p.frames, resp.NewFrame(args...))
	p.reshape = append(p.reshape, reshapeSetReply)
	return p
}

// Len reports the number of frames queued.
func (p *Pipeline) Len() int { return len(p.frames) }

// Reset clears the queued frames without executing them.
func (p *Pipeline) Reset() {
	p.frames = p.frames[:0]
	p.reshape = p.reshape[:0]
}

// Execute submits every queued frame as one batched round trip and returns
// the ordered, reshaped replies, then resets the pipeline's state
// regardless of whether the call succeeded.
func (p *Pipeline) Execute(ctx context.Context) ([]any, error) {
	frames := p.frames
	reshape := p.reshape
	p.frames = nil
	p.reshape = nil

	out, err := p.client.PipelineExecute(ctx, frames)
	for i, fn := range reshape {
		if fn != nil && i < len(out) {
			out[i] = fn(out[i])
		}
	}
	return out, err
}
