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

package common

const (
	// App 应用程序名称
	App = "rediswire"

	// Version 应用程序版本
	Version = "v0.0.1"

	// ReadBufferChunk 每次读缓冲区扩容的步进大小
	ReadBufferChunk = 8 * 1024

	// ReadBufferSoftCap 读缓冲区的软上限, 超出该大小即视为单条回复过大
	ReadBufferSoftCap = 16 * 1024 * 1024

	// ReadBufferCompactThreshold 占用率低于该比例时才会对读缓冲区执行紧缩
	ReadBufferCompactThreshold = 0.5
)
