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
	"net/url"
	"strconv"

	"github.com/rulego/opcua-rest/endpoint"
)

const KeyReferenceId = "id"

// References 节点的正向引用列表，键为从 1 开始的序号
func (c *Controller) References(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		refs, err := c.Service.References(exchange.In.Context(), exchange.In.Credentials(), id)
		if err != nil {
			return writeError(exchange, err)
		}
		self := NodePath(id) + "/references"
		links := Links{"self": Link{Href: self}}
		embedded := make(map[string]interface{}, len(refs))
		for _, ref := range refs {
			key := strconv.Itoa(ref.Index)
			links[key] = Link{Href: self + "/" + key}
			embedded[key] = map[string]interface{}{
				"NodeId":        ref.NodeID,
				"ReferenceType": ref.ReferenceType,
			}
		}
		return writeHal(exchange, map[string]interface{}{
			"_links":    links,
			"_embedded": embedded,
		})
	}).End()
}

// Reference 单个引用，包含两个方向
func (c *Controller) Reference(path string) *endpoint.Router {
	return endpoint.NewRouter().From(path).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		id := nodeID(exchange)
		index := exchange.In.GetParam(KeyReferenceId)
		ref, err := c.Service.Reference(exchange.In.Context(), exchange.In.Credentials(), id, index)
		if err != nil {
			return writeError(exchange, err)
		}
		return writeHal(exchange, map[string]interface{}{
			"_links": Links{
				"self":          Link{Href: NodePath(id) + "/references/" + url.PathEscape(index)},
				"Node":          Link{Href: NodePath(ref.NodeID)},
				"ReferenceType": Link{Href: NodePath(ref.ReferenceTypeID)},
			},
			"_embedded": map[string]interface{}{
				"Node": map[string]interface{}{
					"NodeId":      ref.NodeID,
					"DisplayName": ref.DisplayName.Text,
					"NodeClass":   ref.NodeClass,
				},
				"ReferenceType": map[string]interface{}{
					"NodeId":      ref.ReferenceTypeID,
					"DisplayName": ref.ReferenceType,
				},
			},
			"isForward": ref.IsForward,
		})
	}).End()
}
