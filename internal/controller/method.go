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
	"net/http"
	"net/url"

	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/service"
)

const KeyMethodId = "methodId"

// Methods 节点的方法列表
func (c *Controller) Methods(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		methods, err := c.Service.Methods(exchange.In.Context(), exchange.In.Credentials(), id)
		if err != nil {
			return writeError(exchange, err)
		}
		self := NodePath(id) + "/methods"
		links := Links{"self": Link{Href: self}}
		embedded := make(map[string]interface{}, len(methods))
		for _, m := range methods {
			links[m.NodeID] = Link{Href: methodPath(id, m.NodeID)}
			embedded[m.NodeID] = m
		}
		return writeHal(exchange, map[string]interface{}{
			"_links":    links,
			"_embedded": embedded,
		})
	}).End()
}

func methodPath(nodeID, methodID string) string {
	return NodePath(nodeID) + "/methods/" + url.PathEscape(methodID)
}

// Method 方法的输入输出参数说明，可执行时附带 call 链接
func (c *Controller) Method(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		methodID := exchange.In.GetParam(KeyMethodId)
		scheme, err := c.Service.Method(exchange.In.Context(), exchange.In.Credentials(), methodID)
		if err != nil {
			return writeError(exchange, err)
		}
		self := methodPath(id, methodID)
		links := Links{"self": Link{Href: self}}
		if scheme.Executable {
			links["call"] = Link{Href: self, Method: http.MethodPost}
		}
		embedded := make(map[string]interface{}, len(scheme.Arguments))
		for key, args := range scheme.Arguments {
			embedded[key] = map[string]interface{}{"Values": args}
		}
		return writeHal(exchange, map[string]interface{}{
			"_links":      links,
			"_embedded":   embedded,
			"NodeId":      scheme.MethodID,
			"BrowseName":  scheme.BrowseName,
			"DisplayName": scheme.DisplayName,
			"executable":  scheme.Executable,
		})
	}).End()
}

// Call 调用方法，请求体为输入参数数组，响应为输出参数数组
func (c *Controller) Call(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		var body interface{}
		if len(exchange.In.Body()) > 0 {
			if err := decodeBody(exchange, &body); err != nil {
				return writeError(exchange, err)
			}
		}
		inputs, err := service.DecodeInputArguments(body)
		if err != nil {
			return writeError(exchange, err)
		}
		outputs, err := c.Service.Call(exchange.In.Context(), exchange.In.Credentials(), nodeID(exchange), exchange.In.GetParam(KeyMethodId), inputs)
		if err != nil {
			return writeError(exchange, err)
		}
		if outputs == nil {
			outputs = []interface{}{}
		}
		return writeHal(exchange, outputs)
	}).End()
}
