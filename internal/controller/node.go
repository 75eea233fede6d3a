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
	"strconv"
	"time"

	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/service"
	"github.com/rulego/opcua-rest/utils/maps"
)

const (
	KeyNodeId      = "nodeId"
	KeyAttributeId = "attributeId"
	KeyStart       = "start"
	KeyEnd         = "end"
	KeyMax         = "max"
	timeFormat     = "YYYY-MM-DDTHH:mm:ss.sssZ"
)

// nodeID 路径参数，缺省时使用根节点
func nodeID(exchange *endpoint.Exchange) string {
	if id := exchange.In.GetParam(KeyNodeId); id != "" {
		return id
	}
	return service.RootNode
}

// Node 节点文档，带 start 参数时读取历史数据
func (c *Controller) Node(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		start, end := exchange.In.GetParam(KeyStart), exchange.In.GetParam(KeyEnd)
		if start != "" || end != "" {
			return c.history(exchange, id, start, end)
		}
		node, err := c.Service.Node(exchange.In.Context(), exchange.In.Credentials(), id)
		if err != nil {
			return writeError(exchange, err)
		}
		return writeHal(exchange, nodeDocument(id, node))
	}).End()
}

func nodeDocument(id string, node *service.Node) map[string]interface{} {
	self := NodePath(id)
	links := Links{"self": Link{Href: self}}
	if node.HasReferences {
		links["References"] = Link{Href: self + "/references"}
	}
	if node.HasMethods {
		links["Methods"] = Link{Href: self + "/methods"}
	}
	if node.HistoryRead {
		links["HistoryRead"] = []Link{
			{Href: self + "{?start,end}", Templated: true, TimeFormat: timeFormat},
			{Href: self + "{?start}", Templated: true, TimeFormat: timeFormat, Description: "current time is used for end time"},
		}
	}
	if node.Subscribable() {
		links["subscription"] = Link{Href: self + "/subscription", Method: "WebSocket"}
	}
	for _, name := range node.Available {
		links[name] = Link{Href: self + "/attributes/" + name}
	}
	return map[string]interface{}{
		"_links":    links,
		"_embedded": node.Embedded,
	}
}

func (c *Controller) history(exchange *endpoint.Exchange, id, start, end string) bool {
	values, err := c.Service.History(exchange.In.Context(), exchange.In.Credentials(), id, start, end)
	if err != nil {
		return writeError(exchange, err)
	}
	self := NodePath(id)
	query := url.Values{KeyStart: []string{start}}
	if end != "" {
		query.Set(KeyEnd, end)
	}
	if values == nil {
		values = []service.HistoryValue{}
	}
	return writeHal(exchange, map[string]interface{}{
		"_links": Links{
			"self":     Link{Href: self + "?" + query.Encode()},
			"template": Link{Href: self + "{?start,end}", Templated: true, TimeFormat: timeFormat},
			"Node":     Link{Href: self},
		},
		"HistoryData": values,
	})
}

// Browse 分页浏览节点的全部引用，max 为每次浏览请求的最大引用数
func (c *Controller) Browse(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		var maxReferences uint64
		if v := exchange.In.GetParam(KeyMax); v != "" {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				writeText(exchange, http.StatusBadRequest, `"max" should be a non-negative integer!`)
				return false
			}
			maxReferences = n
		}
		refs, err := c.Service.Browse(exchange.In.Context(), exchange.In.Credentials(), id, uint32(maxReferences))
		if err != nil {
			return writeError(exchange, err)
		}
		self := NodePath(id)
		return writeHal(exchange, map[string]interface{}{
			"_links": Links{
				"self": Link{Href: self + "/browse"},
				"Node": Link{Href: self},
			},
			"references": refs,
		})
	}).End()
}

// Attribute 读取单个属性，可写时附带 update 链接
func (c *Controller) Attribute(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		value, err := c.Service.Attribute(exchange.In.Context(), exchange.In.Credentials(), id, exchange.In.GetParam(KeyAttributeId))
		if err != nil {
			return writeError(exchange, err)
		}
		name := value.Kind.String()
		self := NodePath(id) + "/attributes/" + name
		links := Links{"self": Link{Href: self}}
		if value.Writable {
			links["update"] = Link{Href: self, Method: http.MethodPut}
		}
		doc := map[string]interface{}{
			"_links":   links,
			"value":    value.Value,
			"writable": value.Writable,
			"time":     timestamps(value.SourceTimestamp, value.ServerTimestamp),
		}
		if value.Decoded != nil {
			doc[name] = value.Decoded.Value
		}
		return writeHal(exchange, doc)
	}).End()
}

func timestamps(source, server time.Time) map[string]interface{} {
	t := map[string]interface{}{}
	if !source.IsZero() {
		t["sourceTimestamp"] = source
	}
	if !server.IsZero() {
		t["serverTimestamp"] = server
	}
	return t
}

// WriteAttribute 写属性，成功返回 204
func (c *Controller) WriteAttribute(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		var body map[string]interface{}
		if err := decodeBody(exchange, &body); err != nil {
			return writeError(exchange, err)
		}
		var payload service.WritePayload
		if err := maps.Map2Struct(body, &payload); err != nil {
			writeText(exchange, http.StatusBadRequest, MsgSyntaxError)
			return false
		}
		err := c.Service.WriteAttribute(exchange.In.Context(), exchange.In.Credentials(), nodeID(exchange), exchange.In.GetParam(KeyAttributeId), &payload)
		if err != nil {
			return writeError(exchange, err)
		}
		exchange.Out.SetStatusCode(http.StatusNoContent)
		return true
	}).End()
}
