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

// Package uaclient 基于 gopcua 的后端实现：端点发现、安全策略选择、身份认证、证书生成
//
// Package uaclient implements the backing-stack capability interfaces on top of
// github.com/gopcua/opcua.
package uaclient

import (
	"time"

	"github.com/rulego/opcua-rest/utils/maps"
)

const (
	// DefaultApplicationURI 客户端应用 URI，同时写入自签名证书的 SAN
	DefaultApplicationURI = "urn:rulego:opcua-rest"
	DefaultDialTimeout    = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Config 后端连接配置
type Config struct {
	// Endpoint 服务端地址，例如 opc.tcp://localhost:4840
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	// SecurityPolicy None/Basic128Rsa15/Basic256/Basic256Sha256，空表示选择最安全的端点
	SecurityPolicy string `json:"securityPolicy" mapstructure:"securityPolicy"`
	// SecurityMode None/Sign/SignAndEncrypt
	SecurityMode string `json:"securityMode" mapstructure:"securityMode"`
	// CertFile/KeyFile 客户端证书，安全策略不是 None 时使用
	CertFile string `json:"certFile" mapstructure:"certFile"`
	KeyFile  string `json:"keyFile" mapstructure:"keyFile"`
	// PkiDir 未配置证书时自动生成自签名证书的目录，空表示不生成
	PkiDir         string `json:"pkiDir" mapstructure:"pkiDir"`
	ApplicationURI string `json:"applicationUri" mapstructure:"applicationUri"`
	// Local 服务端通告的端点地址不可达时（例如容器内），改用 Endpoint 连接
	Local          bool          `json:"local" mapstructure:"local"`
	DialTimeout    time.Duration `json:"dialTimeout" mapstructure:"dialTimeout"`
	RequestTimeout time.Duration `json:"requestTimeout" mapstructure:"requestTimeout"`
}

// NewConfigFromMap decodes a configuration map, filling defaults for missing fields.
func NewConfigFromMap(configuration map[string]interface{}) (Config, error) {
	var c Config
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return c, err
	}
	c.withDefaults()
	return c, nil
}

func (c *Config) withDefaults() {
	if c.ApplicationURI == "" {
		c.ApplicationURI = DefaultApplicationURI
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}
