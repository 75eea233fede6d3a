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

// Package controller HTTP 和 websocket 处理函数：HAL 文档组装、错误到 HTTP 状态码的映射
package controller

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/elnormous/contenttype"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/endpoint/rest"
	"github.com/rulego/opcua-rest/health"
	"github.com/rulego/opcua-rest/service"
	"github.com/rulego/opcua-rest/subscription"
	"github.com/rulego/opcua-rest/utils/json"
)

const (
	// ApiBasePath 接口根路径
	ApiBasePath = "/api"

	MsgNotImplemented   = "This has not been implemented yet."
	MsgNotAcceptable    = "Not Acceptable"
	MsgUnknownNode      = "The NodeId refers to a node that does not exist in the server address space."
	MsgMissingAuth      = "Access denied because of missing credentials for Basic Authentication"
	MsgIncorrectAuth    = "Access denied because of incorrect credentials for Basic Authentication"
	MsgIndexRange       = "The submitted indexRange is containing errors."
	MsgNoSuchAttribute  = "The Node doesn't provide this attribute."
	MsgWriteUnsupported = "Writing this combination of value, status and timestamps is not supported."
	MsgNotWritable      = "You're not allowed to write to this attribute."
	MsgOutOfRange       = "The value was out of range."
	MsgTypeMismatch     = "The value supplied for the attribute is not of the same type as the attribute's value."
	MsgEncoding         = "The server does not support the requested data encoding for the node."
	MsgNotReadable      = "The Accesslevel does not allow reading or subscribing to the Node."
	MsgArgumentsMissing = "Input Error: One or more input arguments are missing."
	MsgSyntaxError      = "There's a syntax error in your transmitted JSON."
	MsgInternal         = "Oops, something went wrong..."
)

var (
	halMediaType  = contenttype.NewMediaType(rest.HalJsonContextType)
	jsonMediaType = contenttype.NewMediaType(rest.JsonContextType)
	// 支持的响应类型，按优先级排列
	availableMediaTypes = []contenttype.MediaType{halMediaType, jsonMediaType}
)

// Controller 持有处理请求所需的服务
type Controller struct {
	Service     *service.Service
	Multiplexer *subscription.Multiplexer
	Checker     *health.Checker
	Config      types.Config
}

// New 创建 Controller，health 可以为空
func New(svc *service.Service, mux *subscription.Multiplexer, checker *health.Checker, config types.Config) *Controller {
	return &Controller{Service: svc, Multiplexer: mux, Checker: checker, Config: config}
}

// Link HAL 链接
type Link struct {
	Href        string `json:"href"`
	Method      string `json:"method,omitempty"`
	Templated   bool   `json:"templated,omitempty"`
	TimeFormat  string `json:"TimeFormat,omitempty"`
	Description string `json:"description,omitempty"`
}

// Links HAL _links，值为 Link 或 []Link
type Links map[string]interface{}

// NodePath 返回节点文档的路径，节点 ID 做路径转义
func NodePath(nodeID string) string {
	return ApiBasePath + "/nodes/" + url.PathEscape(nodeID)
}

// AcceptProcess 检查 Accept 头，只接受 hal+json 或 json
var AcceptProcess endpoint.Process = func(exchange *endpoint.Exchange) bool {
	if _, err := acceptable(exchange.In); err != nil {
		writeText(exchange, http.StatusNotAcceptable, MsgNotAcceptable)
		return false
	}
	return true
}

func acceptable(in endpoint.Message) (contenttype.MediaType, error) {
	req := &http.Request{Header: http.Header(in.Headers())}
	mediaType, _, err := contenttype.GetAcceptableMediaType(req, availableMediaTypes)
	return mediaType, err
}

// writeHal 按协商结果写 hal+json 或 json
func writeHal(exchange *endpoint.Exchange, v interface{}) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return writeError(exchange, err)
	}
	contentType := rest.HalJsonContextType
	if mediaType, err := acceptable(exchange.In); err == nil && mediaType.Subtype == jsonMediaType.Subtype {
		contentType = rest.JsonContextType
	}
	exchange.Out.Headers().Set(rest.ContentTypeKey, contentType)
	exchange.Out.SetStatusCode(http.StatusOK)
	exchange.Out.SetBody(b)
	return true
}

func writeText(exchange *endpoint.Exchange, statusCode int, msg string) {
	exchange.Out.Headers().Set(rest.ContentTypeKey, rest.TextContextType)
	exchange.Out.SetStatusCode(statusCode)
	exchange.Out.SetBody([]byte(msg))
}

// writeError 把错误转换成状态码和文本消息，总是返回 false
func writeError(exchange *endpoint.Exchange, err error) bool {
	statusCode, msg := HttpError(err)
	writeText(exchange, statusCode, msg)
	return false
}

// HttpError 错误到 HTTP 状态码和响应文本的映射
func HttpError(err error) (int, string) {
	var (
		notFound   *types.NotFoundError
		forbidden  *types.ForbiddenError
		validation *types.ValidationError
		authErr    *types.AuthenticationError
		statusErr  *types.StatusError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Msg
	case errors.As(err, &forbidden):
		return http.StatusForbidden, forbidden.Msg
	case errors.As(err, &validation):
		if validation.Input {
			return http.StatusUnprocessableEntity, validation.Msg
		}
		if validation.Msg == attribute.MsgNotAnAttribute {
			return http.StatusNotFound, validation.Msg
		}
		return http.StatusBadRequest, validation.Msg
	case errors.As(err, &authErr):
		if authErr.Anonymous {
			return http.StatusUnauthorized, MsgMissingAuth
		}
		return http.StatusUnauthorized, MsgIncorrectAuth
	}
	code, ok := types.StatusCodeOf(err)
	if !ok {
		return http.StatusInternalServerError, MsgInternal
	}
	writing := errors.As(err, &statusErr) && strings.HasPrefix(statusErr.Op, "write")
	switch code {
	case ua.StatusBadNodeIDInvalid, ua.StatusBadNodeIDUnknown:
		return http.StatusNotFound, MsgUnknownNode
	case ua.StatusBadIdentityTokenRejected, ua.StatusBadIdentityTokenInvalid:
		return http.StatusUnauthorized, MsgIncorrectAuth
	case ua.StatusBadIndexRangeInvalid, ua.StatusBadIndexRangeNoData:
		return http.StatusBadRequest, MsgIndexRange
	case ua.StatusBadAttributeIDInvalid:
		return http.StatusNotFound, MsgNoSuchAttribute
	case ua.StatusBadWriteNotSupported:
		return http.StatusBadRequest, MsgWriteUnsupported
	case ua.StatusBadNotWritable:
		return http.StatusForbidden, MsgNotWritable
	case ua.StatusBadOutOfRange:
		return http.StatusBadRequest, MsgOutOfRange
	case ua.StatusBadTypeMismatch:
		return http.StatusBadRequest, MsgTypeMismatch
	case ua.StatusBadDataEncodingUnsupported:
		return http.StatusBadRequest, MsgEncoding
	case ua.StatusBadArgumentsMissing:
		return http.StatusUnprocessableEntity, MsgArgumentsMissing
	case ua.StatusBadMethodInvalid:
		return http.StatusNotFound, service.MsgNotAMethod
	case ua.StatusBadNotReadable, ua.StatusBadUserAccessDenied:
		if writing {
			return http.StatusForbidden, MsgNotWritable
		}
		return http.StatusForbidden, MsgNotReadable
	}
	return http.StatusInternalServerError, MsgInternal
}

// decodeBody 解析 JSON 请求体，数字保留为 json.Number
func decodeBody(exchange *endpoint.Exchange, v interface{}) error {
	body := exchange.In.Body()
	if len(body) == 0 {
		return types.NewValidationError(MsgSyntaxError)
	}
	if err := json.Decode(bytes.NewReader(body), v); err != nil {
		return types.NewValidationError(MsgSyntaxError)
	}
	return nil
}

// NotImplemented 占位接口，返回 405
func (c *Controller) NotImplemented(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(func(exchange *endpoint.Exchange) bool {
		writeText(exchange, http.StatusMethodNotAllowed, MsgNotImplemented)
		return false
	}).End()
}

// Entry 接口入口文档
func (c *Controller) Entry(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(AcceptProcess).Process(func(exchange *endpoint.Exchange) bool {
		return writeHal(exchange, map[string]interface{}{
			"_links": Links{
				"self":          Link{Href: ApiBasePath + "/"},
				"Entry Node":    Link{Href: NodePath(service.RootNode)},
				"Query":         Link{Href: ApiBasePath + "/query"},
				"documentation": Link{Href: ApiBasePath + "/doc"},
				"health":        Link{Href: ApiBasePath + "/health"},
			},
		})
	}).End()
}

// Health 最近一次后端探测结果，不可达时返回 503
func (c *Controller) Health(url string) *endpoint.Router {
	return endpoint.NewRouter().From(url).Process(func(exchange *endpoint.Exchange) bool {
		if c.Checker == nil {
			writeText(exchange, http.StatusNotFound, MsgNotImplemented)
			return false
		}
		status := c.Checker.Last()
		b, err := json.Marshal(status)
		if err != nil {
			return writeError(exchange, err)
		}
		exchange.Out.Headers().Set(rest.ContentTypeKey, rest.JsonContextType)
		if status.Reachable {
			exchange.Out.SetStatusCode(http.StatusOK)
		} else {
			exchange.Out.SetStatusCode(http.StatusServiceUnavailable)
		}
		exchange.Out.SetBody(b)
		return true
	}).End()
}
