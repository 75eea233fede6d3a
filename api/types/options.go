/*
 * Copyright 2024 The RuleGo Authors.
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
	"errors"
	"time"
)

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithDebug is an option that enables or disables debug logging.
func WithDebug(debug bool) Option {
	return func(c *Config) error {
		c.Debug = debug
		return nil
	}
}

// WithMaxRetry is an option that sets the connection retry count of the Config.
func WithMaxRetry(maxRetry int) Option {
	return func(c *Config) error {
		if maxRetry < 0 {
			return errors.New("maxRetry can not be negative")
		}
		c.MaxRetry = maxRetry
		return nil
	}
}

// WithRetryDelay is an option that sets the delay between connection attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) error {
		c.RetryDelay = delay
		return nil
	}
}

// WithOperationTimeout is an option that bounds every synchronous operation.
func WithOperationTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.OperationTimeout = timeout
		return nil
	}
}
