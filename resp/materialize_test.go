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

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediswire/rediswire/rediserr"
)

func decodeAndMaterialize(t *testing.T, raw string, opts Options) any {
	t.Helper()
	d := NewDecoder()
	v, _, outcome, err := d.Decode([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, Complete, outcome)
	mv, err := Materialize(v, opts)
	require.NoError(t, err)
	return mv
}

func TestMaterializeBulkStringDefaultBytes(t *testing.T) {
	mv := decodeAndMaterialize(t, "$5\r\nhello\r\n", Options{})
	b, ok := mv.([]byte)
	require.True(t, ok)
	assert.Equal(t, "hello", string(b))
}

func TestMaterializeBulkStringDecodeResponses(t *testing.T) {
	mv := decodeAndMaterialize(t, "$5\r\nhello\r\n", Options{DecodeResponses: true})
	s, ok := mv.(string)
	require.True(t, ok)
	assert.Equal(t, "hello", s)
}

func TestMaterializeInvalidUTF8FallsBackToBytesNeverRaises(t *testing.T) {
	d := NewDecoder()
	raw := []byte("$2\r\n\xff\xfe\r\n")
	v, _, outcome, err := d.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, Complete, outcome)

	mv, err := Materialize(v, Options{DecodeResponses: true})
	require.NoError(t, err)
	b, ok := mv.([]byte)
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xfe}, b)
}

func TestMaterializeNullBulkString(t *testing.T) {
	mv := decodeAndMaterialize(t, "$-1\r\n", Options{})
	assert.Nil(t, mv)
}

func TestMaterializeInteger(t *testing.T) {
	mv := decodeAndMaterialize(t, ":42\r\n", Options{})
	assert.Equal(t, int64(42), mv)
}

func TestMaterializeArray(t *testing.T) {
	mv := decodeAndMaterialize(t, "*2\r\n:1\r\n:2\r\n", Options{})
	arr, ok := mv.([]any)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, int64(1), arr[0])
	assert.Equal(t, int64(2), arr[1])
}

func TestMaterializeMapFlattensToAlternatingPairs(t *testing.T) {
	mv := decodeAndMaterialize(t, "%1\r\n+field\r\n+value\r\n", Options{DecodeResponses: true})
	flat, ok := mv.([]any)
	require.True(t, ok)
	require.Len(t, flat, 2)
	assert.Equal(t, "field", flat[0])
	assert.Equal(t, "value", flat[1])
}

func TestMaterializeDoubleAndBoolean(t *testing.T) {
	mv := decodeAndMaterialize(t, ",3.5\r\n", Options{})
	assert.Equal(t, 3.5, mv)

	mv = decodeAndMaterialize(t, "#f\r\n", Options{})
	assert.Equal(t, false, mv)
}

func TestMaterializeVerbatimString(t *testing.T) {
	mv := decodeAndMaterialize(t, "=15\r\ntxt:Some string\r\n", Options{})
	vs, ok := mv.(VerbatimString)
	require.True(t, ok)
	assert.Equal(t, "txt", vs.Format)
	assert.Equal(t, "Some string", vs.Text)
}

func TestMaterializePushMessage(t *testing.T) {
	mv := decodeAndMaterialize(t, ">2\r\n+message\r\n+hi\r\n", Options{DecodeResponses: true})
	pm, ok := mv.(PushMessage)
	require.True(t, ok)
	require.Len(t, pm, 2)
	assert.Equal(t, "message", pm[0])
}

func TestMaterializeErrorClassifiesAndRaises(t *testing.T) {
	d := NewDecoder()
	v, _, outcome, err := d.Decode([]byte("-WRONGTYPE Operation against a key\r\n"))
	require.NoError(t, err)
	require.Equal(t, Complete, outcome)

	mv, merr := Materialize(v, Options{})
	assert.Nil(t, mv)
	require.Error(t, merr)

	var redisErr *rediserr.Error
	require.ErrorAs(t, merr, &redisErr)
	assert.Equal(t, rediserr.KindWrongType, redisErr.Kind)
}
