/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package json

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rulego/opcua-rest/test/assert"
)

type link struct {
	Href string `json:"href"`
}

func TestMarshal(t *testing.T) {
	v, err := Marshal(link{Href: "/api/nodes/ns%3D1%3Bs%3DA&B"})
	assert.Nil(t, err)
	assert.Equal(t, `{"href":"/api/nodes/ns%3D1%3Bs%3DA&B"}`, string(v))

	v, err = Marshal(map[string]interface{}{"text": "<a>", "n": 1})
	assert.Nil(t, err)
	assert.Equal(t, `{"n":1,"text":"<a>"}`, string(v))

	_, err = Marshal(make(chan int))
	assert.NotNil(t, err)
}

func TestDecodeKeepsNumbers(t *testing.T) {
	var m map[string]interface{}
	err := Decode(strings.NewReader(`{"value": 9007199254740993}`), &m)
	assert.Nil(t, err)
	assert.Equal(t, json.Number("9007199254740993"), m["value"])
}
