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

// Package rest HTTP 接收端点，基于 httprouter
package rest

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/session"
	"github.com/rulego/opcua-rest/utils/runtime"
)

const (
	ContentTypeKey     = "Content-Type"
	AuthorizationKey   = "Authorization"
	JsonContextType    = "application/json"
	HalJsonContextType = "application/hal+json"
	TextContextType    = "text/plain; charset=utf-8"
)

// RequestMessage http请求消息
type RequestMessage struct {
	request *http.Request
	body    []byte
	// 路径参数
	Params httprouter.Params
}

func (r *RequestMessage) Body() []byte {
	if r.body == nil && r.request.Body != nil {
		defer func() {
			_ = r.request.Body.Close()
		}()
		entry, _ := io.ReadAll(r.request.Body)
		r.body = entry
	}
	return r.body
}

func (r *RequestMessage) Headers() textproto.MIMEHeader {
	return textproto.MIMEHeader(r.request.Header)
}

func (r *RequestMessage) From() string {
	return r.request.URL.String()
}

// GetParam 路径参数是转义后的原始片段，这里做一次解码，使包含 '/' 的节点 ID 可以通过 %2F 传递
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
	return session.ParseBasicAuth(r.request.Header.Get(AuthorizationKey))
}

func (r *RequestMessage) Request() *http.Request {
	return r.request
}

// ResponseMessage http响应消息
type ResponseMessage struct {
	request  *http.Request
	response http.ResponseWriter
	body     []byte
	// 状态码只能写一次
	statusCode int
}

func (r *ResponseMessage) Body() []byte {
	return r.body
}

func (r *ResponseMessage) Headers() textproto.MIMEHeader {
	return textproto.MIMEHeader(r.response.Header())
}

func (r *ResponseMessage) From() string {
	return r.request.URL.String()
}

func (r *ResponseMessage) GetParam(key string) string {
	return r.request.URL.Query().Get(key)
}

func (r *ResponseMessage) SetStatusCode(statusCode int) {
	if r.statusCode != 0 {
		return
	}
	r.statusCode = statusCode
	r.response.WriteHeader(statusCode)
}

func (r *ResponseMessage) StatusCode() int {
	return r.statusCode
}

func (r *ResponseMessage) SetBody(body []byte) {
	r.body = body
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	_, _ = r.response.Write(body)
}

func (r *ResponseMessage) Context() context.Context {
	return r.request.Context()
}

func (r *ResponseMessage) Credentials() *types.Credentials {
	return nil
}

func (r *ResponseMessage) Response() http.ResponseWriter {
	return r.response
}

// Config Rest 服务配置
type Config struct {
	Server      string `json:"server" mapstructure:"server"`
	CertFile    string `json:"certFile" mapstructure:"certFile"`
	CertKeyFile string `json:"certKeyFile" mapstructure:"certKeyFile"`
}

// Rest 接收端端点
type Rest struct {
	sync.RWMutex
	// 配置
	Config        Config
	GatewayConfig types.Config
	OnEvent       endpoint.OnEvent
	Server        *http.Server
	// 全局拦截器，在路由处理函数之前执行
	interceptors []endpoint.Process
	// 路由器
	router *httprouter.Router
}

// New 创建 Rest 端点
func New(config Config, gatewayConfig types.Config) *Rest {
	return &Rest{Config: config, GatewayConfig: gatewayConfig, router: newRouter()}
}

func newRouter() *httprouter.Router {
	router := httprouter.New()
	// 路由基于转义后的路径，不能按解码后的路径重定向
	router.RedirectFixedPath = false
	return router
}

// AddInterceptors 添加全局拦截器
func (r *Rest) AddInterceptors(interceptors ...endpoint.Process) *Rest {
	r.Lock()
	defer r.Unlock()
	r.interceptors = append(r.interceptors, interceptors...)
	return r
}

func (r *Rest) Start() error {
	ln, err := r.Listen()
	if err != nil {
		return err
	}
	r.Server = &http.Server{Addr: r.Config.Server, Handler: r}
	isTls := r.Config.CertKeyFile != "" && r.Config.CertFile != ""
	if r.OnEvent != nil {
		r.OnEvent(endpoint.EventInitServer, r)
	}
	go func() {
		defer ln.Close()
		var err error
		if isTls {
			r.Printf("started rest server with TLS on %s", ln.Addr())
			err = r.Server.ServeTLS(ln, r.Config.CertFile, r.Config.CertKeyFile)
		} else {
			r.Printf("started rest server on %s", ln.Addr())
			err = r.Server.Serve(ln)
		}
		if r.OnEvent != nil {
			r.OnEvent(endpoint.EventCompletedServer, err)
		}
	}()
	return nil
}

func (r *Rest) Listen() (net.Listener, error) {
	addr := r.Config.Server
	if addr == "" {
		if r.Config.CertKeyFile != "" && r.Config.CertFile != "" {
			addr = ":https"
		} else {
			addr = ":http"
		}
	}
	return net.Listen("tcp", addr)
}

// Close 优雅关闭服务
func (r *Rest) Close() error {
	if r.Server != nil {
		return r.Server.Shutdown(context.Background())
	}
	return nil
}

// ServeHTTP 使用转义后的路径匹配路由
func (r *Rest) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.RawPath != "" {
		u := *req.URL
		u.Path = req.URL.RawPath
		req = req.Clone(req.Context())
		req.URL = &u
	}
	r.Router().ServeHTTP(w, req)
}

// AddRouter 注册1个或者多个路由
//
// For GET, POST, PUT, PATCH and DELETE requests the respective shortcut
// functions can be used.
func (r *Rest) AddRouter(method string, routers ...*endpoint.Router) *Rest {
	router := r.Router()
	for _, rt := range routers {
		router.Handle(method, rt.FromToString(), r.handler(rt))
	}
	return r
}

// Handle 注册原生 httprouter 处理函数，供 websocket 端点共享路由器
func (r *Rest) Handle(method, path string, handle httprouter.Handle) {
	r.Router().Handle(method, path, handle)
}

func (r *Rest) GET(routers ...*endpoint.Router) *Rest {
	return r.AddRouter(http.MethodGet, routers...)
}

func (r *Rest) POST(routers ...*endpoint.Router) *Rest {
	return r.AddRouter(http.MethodPost, routers...)
}

func (r *Rest) PUT(routers ...*endpoint.Router) *Rest {
	return r.AddRouter(http.MethodPut, routers...)
}

func (r *Rest) DELETE(routers ...*endpoint.Router) *Rest {
	return r.AddRouter(http.MethodDelete, routers...)
}

func (r *Rest) Router() *httprouter.Router {
	r.Lock()
	defer r.Unlock()
	if r.router == nil {
		r.router = newRouter()
	}
	return r.router
}

func (r *Rest) handler(router *endpoint.Router) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		out := &ResponseMessage{request: req, response: w}
		defer func() {
			// 捕捉异常
			if e := recover(); e != nil {
				r.Printf("rest handler err :%v\n%s", e, runtime.Stack())
				if out.statusCode == 0 {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
		}()
		exchange := &endpoint.Exchange{
			In:  &RequestMessage{request: req, Params: params},
			Out: out,
		}
		r.RLock()
		interceptors := r.interceptors
		r.RUnlock()
		for _, interceptor := range interceptors {
			if !interceptor(exchange) {
				return
			}
		}
		router.Execute(exchange)
	}
}

func (r *Rest) Printf(format string, v ...interface{}) {
	r.GatewayConfig.Printf(format, v...)
}
