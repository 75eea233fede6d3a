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
	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/endpoint/websocket"
	"github.com/rulego/opcua-rest/service"
	"github.com/rulego/opcua-rest/subscription"
)

// KeyFilter 可选的通知过滤表达式
const KeyFilter = "filter"

// Subscription 订阅连接上收到的客户端消息
func (c *Controller) Subscription(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(func(exchange *endpoint.Exchange) bool {
		if conn := wsConn(exchange); conn != nil {
			c.Multiplexer.OnMessage(conn.ID(), exchange.In.Body())
		}
		return true
	}).End()
}

// OnWebsocketEvent 连接建立时创建订阅，断开时释放
func (c *Controller) OnWebsocketEvent(eventName string, params ...interface{}) {
	if len(params) == 0 {
		return
	}
	exchange, ok := params[0].(*endpoint.Exchange)
	if !ok {
		return
	}
	conn := wsConn(exchange)
	if conn == nil {
		return
	}
	switch eventName {
	case endpoint.EventConnect:
		nid, err := service.ParseNodeID(nodeID(exchange))
		if err != nil {
			_ = conn.WriteText([]byte(MsgUnknownNode))
			_ = conn.Close()
			return
		}
		id, err := c.Multiplexer.Open(exchange.In.Context(), conn, subscription.Request{
			NodeID:      nid,
			Credentials: exchange.In.Credentials(),
			Filter:      exchange.In.GetParam(KeyFilter),
		})
		conn.SetID(id)
		if err != nil {
			c.Config.Printf("ws subscription %s for %s failed: %v", id, nid, err)
		}
	case endpoint.EventDisconnect:
		if id := conn.ID(); id != "" {
			c.Multiplexer.Close(id)
		}
	}
}

func wsConn(exchange *endpoint.Exchange) *websocket.Conn {
	if out, ok := exchange.Out.(*websocket.ResponseMessage); ok {
		return out.Conn()
	}
	return nil
}
