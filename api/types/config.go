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

package types

import (
	"time"
)

const (
	// DefaultMaxRetry 连接失败默认重试次数
	DefaultMaxRetry = 3
	// DefaultRetryDelay 两次连接重试之间的等待时间
	DefaultRetryDelay = 500 * time.Millisecond
)

// Config defines the configuration shared by the gateway components.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Debug enables per-operation debug lines.
	Debug bool
	// MaxRetry is the number of extra connection attempts made when the backing
	// server cannot be reached. Identity rejections are never retried.
	MaxRetry int
	// RetryDelay is the pause between two connection attempts.
	RetryDelay time.Duration
	// OperationTimeout bounds every synchronous request against the backing server.
	// Zero means no timeout besides the caller's context.
	OperationTimeout time.Duration
}

// Debugf writes a line only when Debug is enabled.
func (c Config) Debugf(format string, v ...interface{}) {
	if c.Debug && c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}

// Printf writes a line to the configured logger.
func (c Config) Printf(format string, v ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:     DefaultLogger(),
		MaxRetry:   DefaultMaxRetry,
		RetryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
