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

	"github.com/rulego/opcua-rest/api/types"
)

const (
	// EventConnect 连接建立事件，参数：*Exchange
	EventConnect = "Connect"
	// EventDisconnect 连接断开事件，参数：*Exchange
	EventDisconnect = "Disconnect"
	// EventInitServer 服务初始化完成事件，参数：endpoint
	EventInitServer = "InitServer"
	// EventCompletedServer 服务停止事件，参数：error
	EventCompletedServer = "CompletedServer"
)

// OnEvent 端点事件回调
type OnEvent func(eventName string, params ...interface{})

// Message 接收端点数据抽象接口
// 不同输入源数据统一接口
type Message interface {
	// Body message body
	Body() []byte
	Headers() textproto.MIMEHeader
	From() string
	// GetParam 路径参数优先，其次是 query/form 参数
	GetParam(key string) string
	// SetStatusCode 响应 code
	SetStatusCode(statusCode int)
	// SetBody 响应 body
	SetBody(body []byte)
	// Context 请求上下文
	Context() context.Context
	// Credentials 从 Authorization 头解析的身份，nil 表示匿名
	Credentials() *types.Credentials
}

// Exchange 包含in 和out message
type Exchange struct {
	In  Message
	Out Message
}

// Process 处理函数
// true:执行下一个处理器，否则不执行
type Process func(exchange *Exchange) bool

// From 来源路由
type From struct {
	router *Router
	// 来源路径
	from string
	// 消息处理拦截器
	processList []Process
}

func (f *From) ToString() string {
	return f.from
}

func (f *From) Process(process Process) *From {
	f.processList = append(f.processList, process)
	return f
}

func (f *From) GetProcessList() []Process {
	return f.processList
}

// ExecuteProcess 执行处理函数
// true:执行下一个逻辑，否则不执行
func (f *From) ExecuteProcess(exchange *Exchange) bool {
	for _, process := range f.processList {
		if !process(exchange) {
			return false
		}
	}
	return true
}

func (f *From) End() *Router {
	return f.router
}

// Router 路由，抽象不同输入源数据路由
// 把消息从输入端（From），经过处理函数（Process）链，生成响应
// 用法：
// http endpoint
//
//	endpoint.NewRouter().From("/api/nodes/:nodeId").Process(accept).Process(getNode).End()
//
// websocket endpoint
//
//	endpoint.NewRouter().From("/api/nodes/:nodeId/subscription").Process(onMessage).End()
type Router struct {
	// 输入
	from *From
}

func NewRouter() *Router {
	return &Router{}
}

func (r *Router) FromToString() string {
	if r.from == nil {
		return ""
	}
	return r.from.ToString()
}

func (r *Router) From(from string) *From {
	r.from = &From{router: r, from: from}
	return r.from
}

func (r *Router) GetFrom() *From {
	return r.from
}

// Execute 执行路由的处理函数链，没有 From 时返回 false
func (r *Router) Execute(exchange *Exchange) bool {
	if r.from == nil {
		return false
	}
	return r.from.ExecuteProcess(exchange)
}
