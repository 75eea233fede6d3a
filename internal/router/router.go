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

// Package router 注册 REST 和 websocket 路由
package router

import (
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/config"
	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/endpoint/rest"
	"github.com/rulego/opcua-rest/endpoint/websocket"
	"github.com/rulego/opcua-rest/internal/controller"
)

const (
	apiBasePath  = controller.ApiBasePath
	moduleNodes  = "nodes"
	nodePath     = apiBasePath + "/" + moduleNodes + "/:nodeId"
	attributeKey = "/attributes/:attributeId"
)

// NewRestServe rest服务 接收端点
func NewRestServe(c config.Config, ctl *controller.Controller, gatewayConfig types.Config) *rest.Rest {
	restEndpoint := rest.New(rest.Config{
		Server:      c.Server,
		CertFile:    c.CertFile,
		CertKeyFile: c.CertKeyFile,
	}, gatewayConfig)
	//添加全局拦截器
	restEndpoint.AddInterceptors(func(exchange *endpoint.Exchange) bool {
		gatewayConfig.Debugf("%s %s", exchange.In.(*rest.RequestMessage).Request().Method, exchange.In.From())
		return true
	})
	Register(restEndpoint, ctl)
	return restEndpoint
}

// Register 注册全部 REST 路由
func Register(restEndpoint *rest.Rest, ctl *controller.Controller) {
	restEndpoint.GET(ctl.Entry(apiBasePath + "/"))
	restEndpoint.GET(ctl.Health(apiBasePath + "/health"))
	restEndpoint.GET(ctl.NotImplemented(apiBasePath + "/doc"))
	restEndpoint.GET(ctl.NotImplemented(apiBasePath + "/query"))
	restEndpoint.POST(ctl.NotImplemented(apiBasePath + "/query"))

	//根节点文档
	restEndpoint.GET(ctl.Node(apiBasePath + "/" + moduleNodes))
	//节点文档，带 start/end 参数时读取历史数据
	restEndpoint.GET(ctl.Node(nodePath))
	restEndpoint.GET(ctl.Browse(nodePath + "/browse"))
	restEndpoint.GET(ctl.References(nodePath + "/references"))
	restEndpoint.GET(ctl.Reference(nodePath + "/references/:id"))
	restEndpoint.GET(ctl.Methods(nodePath + "/methods"))
	restEndpoint.GET(ctl.Method(nodePath + "/methods/:methodId"))
	restEndpoint.POST(ctl.Call(nodePath + "/methods/:methodId"))
	restEndpoint.GET(ctl.Attribute(nodePath + attributeKey))
	restEndpoint.PUT(ctl.WriteAttribute(nodePath + attributeKey))
}

// NewWebsocketServe Websocket服务 接收端点，与 rest 共享端口
func NewWebsocketServe(ctl *controller.Controller, restEndpoint *rest.Rest, gatewayConfig types.Config) *websocket.Websocket {
	wsEndpoint := websocket.New(websocket.Config{}, gatewayConfig, restEndpoint)
	wsEndpoint.OnEvent = ctl.OnWebsocketEvent
	wsEndpoint.AddRouter(ctl.Subscription(nodePath + "/subscription"))
	return wsEndpoint
}
