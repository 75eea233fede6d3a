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

// Package websocket WebSocket 接收端点，基于 gorilla/websocket
package websocket

import (
	"context"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/endpoint/rest"
	"github.com/rulego/opcua-rest/session"
	"github.com/rulego/opcua-rest/utils/runtime"
)

// MsgSwitchProtocol 非 websocket 握手请求的响应
const MsgSwitchProtocol = "Switch protocol to WebSocket!"

// Conn 一个 websocket 连接，写操作加锁
type Conn struct {
	conn   *websocket.Conn
	locker sync.Mutex
	id     atomic.Value
	closed int32
}

// ID 返回绑定的订阅 ID
func (c *Conn) ID() string {
	if v, ok := c.id.Load().(string); ok {
		return v
	}
	return ""
}

func (c *Conn) SetID(id string) {
	c.id.Store(id)
}

// WriteText 写入文本帧
func (c *Conn) WriteText(data []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return websocket.ErrCloseSent
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close 关闭连接，可重复调用
func (c *Conn) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.locker.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.locker.Unlock()
	return c.conn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// RequestMessage websocket请求消息
type RequestMessage struct {
	//ws消息类型 TextMessage=1/BinaryMessage=2
	messageType int
	request     *http.Request
	body        []byte
	//路径参数
	Params httprouter.Params
}

func (r *RequestMessage) Body() []byte {
	return r.body
}

func (r *RequestMessage) Headers() textproto.MIMEHeader {
	return textproto.MIMEHeader(r.request.Header)
}

func (r *RequestMessage) From() string {
	return r.request.URL.String()
}

func (r *RequestMessage) GetParam(key string) string {
	if v := r.Params.ByName(key); v != "" {
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return r.request.URL.Query().Get(key)
}

func (r *RequestMessage) SetStatusCode(statusCode int) {
}

func (r *RequestMessage) SetBody(body []byte) {
	r.body = body
}

func (r *RequestMessage) Context() context.Context {
	return r.request.Context()
}

func (r *RequestMessage) Credentials() *types.Credentials {
	return session.ParseBasicAuth(r.request.Header.Get(rest.AuthorizationKey))
}

func (r *RequestMessage) MessageType() int {
	return r.messageType
}

// ResponseMessage websocket响应消息
type ResponseMessage struct {
	headers textproto.MIMEHeader
	request *http.Request
	conn    *Conn
	body    []byte
	log     func(format string, v ...interface{})
}

func (r *ResponseMessage) Body() []byte {
	return r.body
}

func (r *ResponseMessage) Headers() textproto.MIMEHeader {
	if r.headers == nil {
		r.headers = make(map[string][]string)
	}
	return r.headers
}

func (r *ResponseMessage) From() string {
	return r.request.URL.String()
}

func (r *ResponseMessage) GetParam(key string) string {
	return r.request.URL.Query().Get(key)
}

// SetStatusCode 不提供设置状态码
func (r *ResponseMessage) SetStatusCode(statusCode int) {
}

func (r *ResponseMessage) SetBody(body []byte) {
	r.body = body
	if err := r.conn.WriteText(body); err != nil && r.log != nil {
		r.log("ws write error: %v", err)
	}
}

func (r *ResponseMessage) Context() context.Context {
	return r.request.Context()
}

func (r *ResponseMessage) Credentials() *types.Credentials {
	return nil
}

// Conn 返回底层连接
func (r *ResponseMessage) Conn() *Conn {
	return r.conn
}

// Config Websocket 服务配置，与 Rest 共享端口时不需要
type Config struct {
	Server      string `json:"server" mapstructure:"server"`
	CertFile    string `json:"certFile" mapstructure:"certFile"`
	CertKeyFile string `json:"certKeyFile" mapstructure:"certKeyFile"`
}

// Websocket 接收端端点
type Websocket struct {
	sync.RWMutex
	//配置
	Config        Config
	GatewayConfig types.Config
	OnEvent       endpoint.OnEvent
	// 共享 Rest 端点的 http 服务和路由器
	RestEndpoint *rest.Rest
	Upgrader     websocket.Upgrader
	Server       *http.Server
	//http路由器
	router *httprouter.Router
}

// New 创建 websocket 端点，restEndpoint 不为空时复用其端口
func New(config Config, gatewayConfig types.Config, restEndpoint *rest.Rest) *Websocket {
	ws := &Websocket{Config: config, GatewayConfig: gatewayConfig, RestEndpoint: restEndpoint}
	ws.Upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			if !websocket.IsWebSocketUpgrade(r) {
				http.Error(w, MsgSwitchProtocol, http.StatusForbidden)
				return
			}
			http.Error(w, reason.Error(), status)
		},
	}
	return ws
}

func (ws *Websocket) Start() error {
	//已经初始化
	if ws.RestEndpoint != nil {
		if ws.OnEvent != nil {
			ws.OnEvent(endpoint.EventInitServer, ws.RestEndpoint)
		}
		return nil
	}
	ln, err := ws.Listen()
	if err != nil {
		return err
	}
	ws.Server = &http.Server{Addr: ws.Config.Server, Handler: ws.Router()}
	isTls := ws.Config.CertKeyFile != "" && ws.Config.CertFile != ""
	if ws.OnEvent != nil {
		ws.OnEvent(endpoint.EventInitServer, ws)
	}
	go func() {
		defer ln.Close()
		var err error
		if isTls {
			ws.Printf("started ws server with TLS on %s", ln.Addr())
			err = ws.Server.ServeTLS(ln, ws.Config.CertFile, ws.Config.CertKeyFile)
		} else {
			ws.Printf("started ws server on %s", ln.Addr())
			err = ws.Server.Serve(ln)
		}
		if ws.OnEvent != nil {
			ws.OnEvent(endpoint.EventCompletedServer, err)
		}
	}()
	return nil
}

func (ws *Websocket) Listen() (net.Listener, error) {
	addr := ws.Config.Server
	if addr == "" {
		if ws.Config.CertKeyFile != "" && ws.Config.CertFile != "" {
			addr = ":https"
		} else {
			addr = ":http"
		}
	}
	return net.Listen("tcp", addr)
}

func (ws *Websocket) Close() error {
	if ws.Server != nil {
		return ws.Server.Shutdown(context.Background())
	}
	return nil
}

// AddRouter 注册1个或者多个路由，握手只接受 GET
func (ws *Websocket) AddRouter(routers ...*endpoint.Router) *Websocket {
	for _, item := range routers {
		//添加到http路由器
		if ws.RestEndpoint != nil {
			ws.RestEndpoint.Handle(http.MethodGet, item.FromToString(), ws.handler(item))
		} else {
			ws.Router().Handle(http.MethodGet, item.FromToString(), ws.handler(item))
		}
	}
	return ws
}

func (ws *Websocket) Router() *httprouter.Router {
	ws.Lock()
	defer ws.Unlock()
	if ws.router == nil {
		ws.router = httprouter.New()
	}
	return ws.router
}

func (ws *Websocket) handler(router *endpoint.Router) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		c, err := ws.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			ws.GatewayConfig.Debugf("upgrade: %v", err)
			return
		}
		conn := &Conn{conn: c}
		connectExchange := &endpoint.Exchange{
			In:  &RequestMessage{request: r, Params: params},
			Out: &ResponseMessage{request: r, conn: conn, log: ws.Printf},
		}
		defer func() {
			//捕捉异常
			if e := recover(); e != nil {
				ws.Printf("ws handler err :%v\n%s", e, runtime.Stack())
			}
			if ws.OnEvent != nil {
				ws.OnEvent(endpoint.EventDisconnect, connectExchange)
			}
			_ = conn.Close()
		}()
		if ws.OnEvent != nil {
			ws.OnEvent(endpoint.EventConnect, connectExchange)
		}

		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
				continue
			}
			exchange := &endpoint.Exchange{
				In: &RequestMessage{
					request:     r,
					Params:      params,
					body:        message,
					messageType: mt,
				},
				Out: &ResponseMessage{request: r, conn: conn, log: ws.Printf},
			}
			router.Execute(exchange)
		}
	}
}

func (ws *Websocket) Printf(format string, v ...interface{}) {
	ws.GatewayConfig.Printf(format, v...)
}
