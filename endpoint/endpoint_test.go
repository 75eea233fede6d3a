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

package endpoint

import (
	"context"
	"net/textproto"
	"testing"

	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/test/assert"
)

type testMessage struct {
	params     map[string]string
	body       []byte
	statusCode int
}

func (m *testMessage) Body() []byte                    { return m.body }
func (m *testMessage) Headers() textproto.MIMEHeader   { return textproto.MIMEHeader{} }
func (m *testMessage) From() string                    { return "test" }
func (m *testMessage) GetParam(key string) string      { return m.params[key] }
func (m *testMessage) SetStatusCode(statusCode int)    { m.statusCode = statusCode }
func (m *testMessage) SetBody(body []byte)             { m.body = body }
func (m *testMessage) Context() context.Context        { return context.Background() }
func (m *testMessage) Credentials() *types.Credentials { return nil }

func TestRouter(t *testing.T) {
	var steps []string
	router := NewRouter().From("/api/nodes/:nodeId").Process(func(exchange *Exchange) bool {
		steps = append(steps, "first:"+exchange.In.GetParam("nodeId"))
		return true
	}).Process(func(exchange *Exchange) bool {
		steps = append(steps, "second")
		exchange.Out.SetStatusCode(200)
		exchange.Out.SetBody([]byte("ok"))
		return true
	}).End()
	assert.Equal(t, "/api/nodes/:nodeId", router.FromToString())
	assert.Equal(t, 2, len(router.GetFrom().GetProcessList()))

	out := &testMessage{}
	exchange := &Exchange{In: &testMessage{params: map[string]string{"nodeId": "i=84"}}, Out: out}
	assert.True(t, router.Execute(exchange))
	assert.Equal(t, []string{"first:i=84", "second"}, steps)
	assert.Equal(t, 200, out.statusCode)
	assert.Equal(t, "ok", string(out.body))
}

func TestRouterStopsProcessing(t *testing.T) {
	var called bool
	router := NewRouter().From("/api/").Process(func(exchange *Exchange) bool {
		return false
	}).Process(func(exchange *Exchange) bool {
		called = true
		return true
	}).End()
	assert.False(t, router.Execute(&Exchange{In: &testMessage{}, Out: &testMessage{}}))
	assert.False(t, called)

	assert.False(t, NewRouter().Execute(&Exchange{}))
	assert.Equal(t, "", NewRouter().FromToString())
}
