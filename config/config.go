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

// Package config 网关配置：ini 文件加载，环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/subscription"
	"github.com/rulego/opcua-rest/uaclient"
	"gopkg.in/ini.v1"
)

var C = DefaultConfig

func Get() *Config {
	return &C
}

func Set(c Config) {
	C = c
}

type Config struct {
	// Server http服务器地址
	Server string `ini:"server" env:"SERVER"`
	// Port 仅用于环境变量覆盖，不为0时 Server 为 ":<port>"
	Port int `ini:"-" env:"PORT"`
	// CertFile、CertKeyFile 同时配置时启用 https
	CertFile    string `ini:"cert_file" env:"SERVER_CERT_FILE"`
	CertKeyFile string `ini:"cert_key_file" env:"SERVER_CERT_KEY_FILE"`
	// LogFile 日志文件，为空时输出到标准输出
	LogFile string `ini:"log_file" env:"LOG_FILE"`
	//是否打印调试日志
	Debug bool `ini:"debug" env:"DEBUG"`
	// HealthCheck 后端探测周期，cron 表达式，"-" 表示关闭
	HealthCheck string `ini:"health_check" env:"HEALTH_CHECK"`
	// OpcUa 后端服务配置
	OpcUa OpcUa `ini:"opcua"`
	// Subscription 订阅参数
	Subscription Subscription `ini:"subscription"`
}

// OpcUa 后端 OPC UA 服务配置
type OpcUa struct {
	// Endpoint 服务地址，例如 opc.tcp://localhost:4840
	Endpoint string `ini:"endpoint" env:"OPCUA_ENDPOINT"`
	// Local 忽略服务端返回的 endpoint 地址，始终连接 Endpoint
	Local          bool   `ini:"local" env:"OPCUA_LOCAL"`
	SecurityPolicy string `ini:"security_policy" env:"OPCUA_SECURITY_POLICY"`
	SecurityMode   string `ini:"security_mode" env:"OPCUA_SECURITY_MODE"`
	CertFile       string `ini:"cert_file" env:"OPCUA_CERT_FILE"`
	KeyFile        string `ini:"key_file" env:"OPCUA_KEY_FILE"`
	// PkiDir 没有配置证书时，在该目录生成自签名证书
	PkiDir           string        `ini:"pki_dir" env:"OPCUA_PKI_DIR"`
	ApplicationURI   string        `ini:"application_uri" env:"OPCUA_APPLICATION_URI"`
	DialTimeout      time.Duration `ini:"dial_timeout" env:"OPCUA_DIAL_TIMEOUT"`
	RequestTimeout   time.Duration `ini:"request_timeout" env:"OPCUA_REQUEST_TIMEOUT"`
	OperationTimeout time.Duration `ini:"operation_timeout" env:"OPCUA_OPERATION_TIMEOUT"`
	MaxRetry         int           `ini:"max_retry" env:"OPCUA_MAX_RETRY"`
	RetryDelay       time.Duration `ini:"retry_delay" env:"OPCUA_RETRY_DELAY"`
}

// Subscription 订阅参数，单位毫秒的采样间隔与协议保持一致
type Subscription struct {
	PublishingInterval    time.Duration `ini:"publishing_interval" env:"SUBSCRIPTION_PUBLISHING_INTERVAL"`
	ValueSamplingInterval float64       `ini:"value_sampling_interval" env:"SUBSCRIPTION_VALUE_SAMPLING_INTERVAL"`
	EventSamplingInterval float64       `ini:"event_sampling_interval" env:"SUBSCRIPTION_EVENT_SAMPLING_INTERVAL"`
	QueueSize             uint32        `ini:"queue_size" env:"SUBSCRIPTION_QUEUE_SIZE"`
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Server:      ":3000",
	HealthCheck: "@every 30s",
	OpcUa: OpcUa{
		Endpoint:       "opc.tcp://localhost:4840",
		ApplicationURI: uaclient.DefaultApplicationURI,
		DialTimeout:    uaclient.DefaultDialTimeout,
		RequestTimeout: uaclient.DefaultRequestTimeout,
		MaxRetry:       types.DefaultMaxRetry,
		RetryDelay:     types.DefaultRetryDelay,
	},
	Subscription: Subscription{
		PublishingInterval:    1000 * time.Millisecond,
		ValueSamplingInterval: 10,
		EventSamplingInterval: 3000,
		QueueSize:             1,
	},
}

// Load 以 DefaultConfig 为基础加载配置文件，file 为空时只使用默认值，最后应用环境变量
func Load(file string) (Config, error) {
	c := DefaultConfig
	if file != "" {
		cfg, err := ini.Load(file)
		if err != nil {
			return c, err
		}
		if err := cfg.MapTo(&c); err != nil {
			return c, err
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	return c, nil
}

// ApplyEnv 使用环境变量覆盖配置，没有设置任何环境变量不算错误
func (c *Config) ApplyEnv() error {
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return err
	}
	if c.Port != 0 {
		c.Server = fmt.Sprintf(":%d", c.Port)
	}
	return nil
}

// ClientConfig 转换为 uaclient 配置
func (c *Config) ClientConfig() uaclient.Config {
	return uaclient.Config{
		Endpoint:       c.OpcUa.Endpoint,
		SecurityPolicy: c.OpcUa.SecurityPolicy,
		SecurityMode:   c.OpcUa.SecurityMode,
		CertFile:       c.OpcUa.CertFile,
		KeyFile:        c.OpcUa.KeyFile,
		PkiDir:         c.OpcUa.PkiDir,
		ApplicationURI: c.OpcUa.ApplicationURI,
		Local:          c.OpcUa.Local,
		DialTimeout:    c.OpcUa.DialTimeout,
		RequestTimeout: c.OpcUa.RequestTimeout,
	}
}

// Options 转换为组件共享配置选项
func (c *Config) Options(logger types.Logger) []types.Option {
	return []types.Option{
		types.WithLogger(logger),
		types.WithDebug(c.Debug),
		types.WithMaxRetry(c.OpcUa.MaxRetry),
		types.WithRetryDelay(c.OpcUa.RetryDelay),
		types.WithOperationTimeout(c.OpcUa.OperationTimeout),
	}
}

// SubscriptionParameters 在默认订阅参数上应用配置
func (c *Config) SubscriptionParameters() subscription.Parameters {
	params := subscription.DefaultParameters()
	if c.Subscription.PublishingInterval > 0 {
		params.PublishingInterval = c.Subscription.PublishingInterval
	}
	if c.Subscription.ValueSamplingInterval > 0 {
		params.ValueSamplingInterval = c.Subscription.ValueSamplingInterval
	}
	if c.Subscription.EventSamplingInterval > 0 {
		params.EventSamplingInterval = c.Subscription.EventSamplingInterval
	}
	if c.Subscription.QueueSize > 0 {
		params.QueueSize = c.Subscription.QueueSize
	}
	return params
}
