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

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	gorilla "github.com/gorilla/websocket"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/endpoint/rest"
	"github.com/rulego/opcua-rest/endpoint/websocket"
	"github.com/rulego/opcua-rest/health"
	"github.com/rulego/opcua-rest/service"
	"github.com/rulego/opcua-rest/session"
	"github.com/rulego/opcua-rest/subscription"
	"github.com/rulego/opcua-rest/test"
	"github.com/rulego/opcua-rest/test/assert"
)

var (
	pump    = ua.NewStringNodeID(1, "Pump")
	speed   = ua.NewStringNodeID(1, "Pump.Speed")
	start   = ua.NewStringNodeID(1, "Pump.Start")
	hasComp = ua.NewNumericNodeID(0, 47)
)

func testConfig() types.Config {
	return types.NewConfig(types.WithLogger(types.DiscardLogger), types.WithRetryDelay(time.Millisecond))
}

func ref(target *ua.NodeID, class ua.NodeClass, name string) *ua.ReferenceDescription {
	return &ua.ReferenceDescription{
		ReferenceTypeID: hasComp,
		IsForward:       true,
		NodeID:          ua.NewExpandedNodeID(target, "", 0),
		BrowseName:      &ua.QualifiedName{NamespaceIndex: 1, Name: name},
		DisplayName:     ua.NewLocalizedText(name),
		NodeClass:       class,
	}
}

func pumpSession() *test.FakeSession {
	sess := test.NewFakeSession().
		Set(pump.String(), attribute.NodeID.ID(), pump).
		Set(pump.String(), attribute.NodeClass.ID(), int32(1)).
		Set(pump.String(), attribute.BrowseName.ID(), &ua.QualifiedName{NamespaceIndex: 1, Name: "Pump"}).
		Set(pump.String(), attribute.DisplayName.ID(), ua.NewLocalizedText("Pump")).
		Set(pump.String(), attribute.EventNotifier.ID(), byte(1)).
		Set(speed.String(), attribute.Value.ID(), 42.5).
		Set(speed.String(), attribute.UserAccessLevel.ID(), byte(3)).
		Set(speed.String(), attribute.DisplayName.ID(), ua.NewLocalizedText("Speed"))
	sess.BrowseFunc = func(desc *ua.BrowseDescription) (*ua.BrowseResult, error) {
		if desc.NodeID.String() != pump.String() {
			return &ua.BrowseResult{StatusCode: ua.StatusBadNodeIDUnknown}, nil
		}
		return &ua.BrowseResult{StatusCode: ua.StatusOK, References: []*ua.ReferenceDescription{
			ref(speed, ua.NodeClassVariable, "Speed"),
			ref(start, ua.NodeClassMethod, "Start"),
		}}, nil
	}
	return sess
}

func newServer(t *testing.T, connector types.Connector, checker *health.Checker) *httptest.Server {
	config := testConfig()
	scope := session.NewScope(connector, config)
	ctl := New(service.New(scope, config), subscription.NewMultiplexer(scope, config, subscription.DefaultParameters()), checker, config)

	restEndpoint := rest.New(rest.Config{}, config)
	nodePath := ApiBasePath + "/nodes/:nodeId"
	restEndpoint.GET(ctl.Entry(ApiBasePath + "/"))
	restEndpoint.GET(ctl.Health(ApiBasePath + "/health"))
	restEndpoint.GET(ctl.NotImplemented(ApiBasePath + "/query"))
	restEndpoint.POST(ctl.NotImplemented(ApiBasePath + "/query"))
	restEndpoint.GET(ctl.Node(ApiBasePath + "/nodes"))
	restEndpoint.GET(ctl.Node(nodePath))
	restEndpoint.GET(ctl.Browse(nodePath + "/browse"))
	restEndpoint.GET(ctl.References(nodePath + "/references"))
	restEndpoint.GET(ctl.Methods(nodePath + "/methods"))
	restEndpoint.POST(ctl.Call(nodePath + "/methods/:methodId"))
	restEndpoint.GET(ctl.Attribute(nodePath + "/attributes/:attributeId"))
	restEndpoint.PUT(ctl.WriteAttribute(nodePath + "/attributes/:attributeId"))

	server := httptest.NewServer(restEndpoint)
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, body string, header map[string]string) (*http.Response, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	assert.Nil(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, string(b)
}

func decode(t *testing.T, body string) map[string]interface{} {
	var doc map[string]interface{}
	assert.Nil(t, json.Unmarshal([]byte(body), &doc), body)
	return doc
}

func links(t *testing.T, doc map[string]interface{}) map[string]interface{} {
	l, ok := doc["_links"].(map[string]interface{})
	assert.True(t, ok)
	return l
}

func TestHttpError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{&types.NotFoundError{Msg: service.MsgNoSuchReference}, http.StatusNotFound, service.MsgNoSuchReference},
		{&types.ForbiddenError{Msg: service.MsgHistoryNotAllowed}, http.StatusForbidden, service.MsgHistoryNotAllowed},
		{types.NewValidationError(attribute.MsgNotAnAttribute), http.StatusNotFound, attribute.MsgNotAnAttribute},
		{types.NewValidationError(service.MsgStartNotDate), http.StatusBadRequest, service.MsgStartNotDate},
		{types.NewInputError("Input Error: wrong"), http.StatusUnprocessableEntity, "Input Error: wrong"},
		{&types.AuthenticationError{Anonymous: true}, http.StatusUnauthorized, MsgMissingAuth},
		{&types.AuthenticationError{}, http.StatusUnauthorized, MsgIncorrectAuth},
		{types.NewStatusError("read", ua.StatusBadNodeIDUnknown), http.StatusNotFound, MsgUnknownNode},
		{types.NewStatusError("read", ua.StatusBadAttributeIDInvalid), http.StatusNotFound, MsgNoSuchAttribute},
		{types.NewStatusError("read", ua.StatusBadIndexRangeNoData), http.StatusBadRequest, MsgIndexRange},
		{types.NewStatusError("write Value", ua.StatusBadTypeMismatch), http.StatusBadRequest, MsgTypeMismatch},
		{types.NewStatusError("write Value", ua.StatusBadNotWritable), http.StatusForbidden, MsgNotWritable},
		{types.NewStatusError("write Value", ua.StatusBadUserAccessDenied), http.StatusForbidden, MsgNotWritable},
		{types.NewStatusError("read Value", ua.StatusBadUserAccessDenied), http.StatusForbidden, MsgNotReadable},
		{types.NewStatusError("call", ua.StatusBadArgumentsMissing), http.StatusUnprocessableEntity, MsgArgumentsMissing},
		{types.NewStatusError("read", ua.StatusBadTimeout), http.StatusInternalServerError, MsgInternal},
		{&types.ConnectionError{Err: errors.New("refused")}, http.StatusInternalServerError, MsgInternal},
	}
	for _, tt := range tests {
		status, msg := HttpError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.msg, msg, tt.err.Error())
	}
}

func TestEntry(t *testing.T) {
	server := newServer(t, &test.FakeConnector{Session: pumpSession()}, nil)

	resp, body := do(t, http.MethodGet, server.URL+"/api/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, rest.HalJsonContextType, resp.Header.Get(rest.ContentTypeKey))
	l := links(t, decode(t, body))
	assert.Equal(t, map[string]interface{}{"href": "/api/nodes/RootFolder"}, l["Entry Node"])

	resp, _ = do(t, http.MethodGet, server.URL+"/api/", "", map[string]string{"Accept": "application/json"})
	assert.Equal(t, rest.JsonContextType, resp.Header.Get(rest.ContentTypeKey))

	resp, body = do(t, http.MethodGet, server.URL+"/api/", "", map[string]string{"Accept": "text/html"})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
	assert.Equal(t, MsgNotAcceptable, body)
}

func TestNotImplemented(t *testing.T) {
	server := newServer(t, &test.FakeConnector{Session: pumpSession()}, nil)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp, body := do(t, method, server.URL+"/api/query", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, MsgNotImplemented, body)
	}
}

func TestNodeDocument(t *testing.T) {
	sess := pumpSession()
	server := newServer(t, &test.FakeConnector{Session: sess}, nil)

	resp, body := do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)
	doc := decode(t, body)
	l := links(t, doc)
	self := "/api/nodes/ns=1%3Bs=Pump"
	assert.Equal(t, map[string]interface{}{"href": self}, l["self"])
	assert.Equal(t, map[string]interface{}{"href": self + "/references"}, l["References"])
	assert.Equal(t, map[string]interface{}{"href": self + "/methods"}, l["Methods"])
	assert.Equal(t, map[string]interface{}{"href": self + "/subscription", "method": "WebSocket"}, l["subscription"])
	assert.Equal(t, map[string]interface{}{"href": self + "/attributes/DisplayName"}, l["DisplayName"])
	_, hasHistory := l["HistoryRead"]
	assert.False(t, hasHistory)
	embedded := doc["_embedded"].(map[string]interface{})
	assert.Equal(t, "Pump", embedded["BrowseName"])
	assert.Equal(t, 1, sess.Closed())

	resp, body = do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, MsgUnknownNode, body)

	resp, body = do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump?end=2024-01-01T00:00:00Z", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, service.MsgEndWithoutStart, body)
}

func TestAttribute(t *testing.T) {
	server := newServer(t, &test.FakeConnector{Session: pumpSession()}, nil)

	resp, body := do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump.Speed/attributes/Value", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)
	doc := decode(t, body)
	assert.Equal(t, 42.5, doc["value"])
	assert.Equal(t, true, doc["writable"])
	l := links(t, doc)
	assert.Equal(t, map[string]interface{}{"href": "/api/nodes/ns=1%3Bs=Pump.Speed/attributes/Value", "method": "PUT"}, l["update"])

	resp, body = do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump.Speed/attributes/Colour", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, attribute.MsgNotAnAttribute, body)

	resp, body = do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump.Speed/attributes/Historizing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, MsgNoSuchAttribute, body)
}

func TestWriteAttribute(t *testing.T) {
	sess := pumpSession()
	var written []*ua.WriteValue
	sess.WriteFunc = func(values ...*ua.WriteValue) ([]ua.StatusCode, error) {
		written = append(written, values...)
		if values[0].Value.Value.Type() == ua.TypeIDString {
			return []ua.StatusCode{ua.StatusBadTypeMismatch}, nil
		}
		return []ua.StatusCode{ua.StatusOK}, nil
	}
	server := newServer(t, &test.FakeConnector{Session: sess}, nil)
	url := server.URL + "/api/nodes/ns=1;s=Pump.Speed/attributes/Value"

	resp, _ := do(t, http.MethodPut, url, `{"value":[{"value":{"dataType":"Double","value":1.5}}]}`, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, len(written))
	assert.Equal(t, 1.5, written[0].Value.Value.Value())

	resp, body := do(t, http.MethodPut, url, `{"value":[{"value":{"dataType":"String","value":"fast"}}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, MsgTypeMismatch, body)

	resp, body = do(t, http.MethodPut, url, `{"value":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, MsgSyntaxError, body)
}

func TestReferencesAndMethods(t *testing.T) {
	sess := pumpSession().
		Set(hasComp.String(), attribute.DisplayName.ID(), ua.NewLocalizedText("HasComponent")).
		Set(start.String(), attribute.Description.ID(), ua.NewLocalizedTextWithLocale("Starts the pump", "en"))
	server := newServer(t, &test.FakeConnector{Session: sess}, nil)

	resp, body := do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump/references", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)
	doc := decode(t, body)
	embedded := doc["_embedded"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"NodeId": speed.String(), "ReferenceType": "HasComponent"}, embedded["1"])
	assert.Equal(t, map[string]interface{}{"href": "/api/nodes/ns=1%3Bs=Pump/references/2"}, links(t, doc)["2"])

	resp, body = do(t, http.MethodGet, server.URL+"/api/nodes/ns=1;s=Pump/methods", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)
	doc = decode(t, body)
	assert.Equal(t, map[string]interface{}{"href": "/api/nodes/ns=1%3Bs=Pump/methods/ns=1%3Bs=Pump.Start"}, links(t, doc)[start.String()])
	method := doc["_embedded"].(map[string]interface{})[start.String()].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"locale": "en", "text": "Starts the pump"}, method["Description"])
}

func TestCallWithoutBody(t *testing.T) {
	server := newServer(t, &test.FakeConnector{Session: pumpSession()}, nil)
	resp, body := do(t, http.MethodPost, server.URL+"/api/nodes/ns=1;s=Pump/methods/ns=1;s=Pump.Start", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Input error: The request body mustn't be empty!", body)
}

func TestCredentials(t *testing.T) {
	connector := &test.FakeConnector{Session: pumpSession(), Accept: func(credentials *types.Credentials) error {
		if credentials == nil {
			return &types.AuthenticationError{Anonymous: true}
		}
		if credentials.Password != "secret" {
			return &types.AuthenticationError{}
		}
		return nil
	}}
	server := newServer(t, connector, nil)
	url := server.URL + "/api/nodes/ns=1;s=Pump"

	resp, body := do(t, http.MethodGet, url, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, MsgMissingAuth, body)

	// user:wrong
	resp, body = do(t, http.MethodGet, url, "", map[string]string{"Authorization": "Basic dXNlcjp3cm9uZw=="})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, MsgIncorrectAuth, body)

	// user:secret
	resp, _ = do(t, http.MethodGet, url, "", map[string]string{"Authorization": "Basic dXNlcjpzZWNyZXQ="})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	server := newServer(t, &test.FakeConnector{Session: pumpSession()}, nil)
	resp, _ := do(t, http.MethodGet, server.URL+"/api/health", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	connector := &test.FakeConnector{Err: &types.ConnectionError{Endpoint: "opc.tcp://plc:4840", Err: errors.New("refused")}}
	checker := health.New(connector, "opc.tcp://plc:4840", testConfig(), "")
	checker.Check(context.Background())
	server = newServer(t, connector, checker)
	resp, body := do(t, http.MethodGet, server.URL+"/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	doc := decode(t, body)
	assert.Equal(t, false, doc["reachable"])
	assert.Equal(t, "opc.tcp://plc:4840", doc["endpoint"])
}

func TestSubscription(t *testing.T) {
	sess := pumpSession()
	config := testConfig()
	scope := session.NewScope(&test.FakeConnector{Session: sess}, config)
	mux := subscription.NewMultiplexer(scope, config, subscription.DefaultParameters())
	ctl := New(service.New(scope, config), mux, nil, config)

	restEndpoint := rest.New(rest.Config{}, config)
	wsEndpoint := websocket.New(websocket.Config{}, config, restEndpoint)
	wsEndpoint.OnEvent = ctl.OnWebsocketEvent
	wsEndpoint.AddRouter(ctl.Subscription(ApiBasePath + "/nodes/:nodeId/subscription"))
	assert.Nil(t, wsEndpoint.Start())

	server := httptest.NewServer(restEndpoint)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/nodes/ns=1;s=Pump.Speed/subscription"

	c, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	assert.Nil(t, err)
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))

	assert.Nil(t, c.WriteMessage(gorilla.TextMessage, []byte(`{"samplingInterval":100}`)))
	_, msg, err := c.ReadMessage()
	assert.Nil(t, err)
	assert.Equal(t, subscription.MsgNotSupported, string(msg))
	assert.Equal(t, 1, mux.Registry().Len())

	_ = c.Close()
	assert.Eventually(t, func() bool {
		return mux.Registry().Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sess.LastSubscription().Cancelled())
}

func TestSubscriptionUnknownNode(t *testing.T) {
	config := testConfig()
	scope := session.NewScope(&test.FakeConnector{Session: pumpSession()}, config)
	mux := subscription.NewMultiplexer(scope, config, subscription.DefaultParameters())
	ctl := New(service.New(scope, config), mux, nil, config)

	restEndpoint := rest.New(rest.Config{}, config)
	wsEndpoint := websocket.New(websocket.Config{}, config, restEndpoint)
	wsEndpoint.OnEvent = ctl.OnWebsocketEvent
	wsEndpoint.AddRouter(ctl.Subscription(ApiBasePath + "/nodes/:nodeId/subscription"))
	assert.Nil(t, wsEndpoint.Start())

	server := httptest.NewServer(restEndpoint)
	defer server.Close()

	tests := []struct {
		nodeID string
		msg    string
	}{
		{"ns=abc;i=1", MsgUnknownNode},
		{"ns=1;s=Missing", subscription.MsgNothingToSubscribe},
	}
	for _, tt := range tests {
		c, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/nodes/"+tt.nodeID+"/subscription", nil)
		assert.Nil(t, err)
		_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := c.ReadMessage()
		assert.Nil(t, err)
		assert.Equal(t, tt.msg, string(msg), tt.nodeID)
		_, _, err = c.ReadMessage()
		assert.NotNil(t, err)
		_ = c.Close()
	}
	assert.Eventually(t, func() bool {
		return mux.Registry().Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
