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

// Package endpoint abstracts the input side of the gateway: a request or a socket frame
// becomes an Exchange that flows through the Process chain of a Router.
//
// Package endpoint 抽象网关的输入端：HTTP 请求或 WebSocket 帧被封装成 Exchange，
// 交给 Router 上注册的处理函数链依次处理。
//
// Built-in Endpoint Types:
// 内置端点类型：
//
// • RestEndpoint: HTTP/REST API server (endpoint/rest)  HTTP/REST API 服务器
// • WebsocketEndpoint: WebSocket server sharing the REST router (endpoint/websocket)  WebSocket 服务器
//
// Usage:
// 用法：
//
//	router := endpoint.NewRouter().From("/api/nodes/:nodeId").Process(func(exchange *endpoint.Exchange) bool {
//		exchange.Out.SetStatusCode(http.StatusOK)
//		exchange.Out.SetBody([]byte(exchange.In.GetParam("nodeId")))
//		return true
//	}).End()
//	restEndpoint.GET(router)
package endpoint
