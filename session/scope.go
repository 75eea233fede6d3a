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

// Package session 会话作用域：每次操作获取一个短生命周期的会话，并保证在所有退出路径上释放
//
// Package session acquires one short-lived authenticated session per operation and
// guarantees its release on every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/utils/runtime"
)

// Scope acquires and releases sessions through a Connector.
type Scope struct {
	connector types.Connector
	config    types.Config
}

// NewScope creates a Scope.
func NewScope(connector types.Connector, config types.Config) *Scope {
	return &Scope{connector: connector, config: config}
}

// Acquire opens a session. Connection failures are retried up to MaxRetry times;
// identity rejections fail at once.
func (s *Scope) Acquire(ctx context.Context, credentials *types.Credentials) (types.Session, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetry; attempt++ {
		if attempt > 0 {
			s.config.Debugf("retry connect %d/%d: %v", attempt, s.config.MaxRetry, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}
		sess, err := s.connector.Connect(ctx, credentials)
		if err == nil {
			return sess, nil
		}
		lastErr = err
		var connErr *types.ConnectionError
		if !errors.As(err, &connErr) {
			return nil, err
		}
	}
	return nil, lastErr
}

// Release closes the session. Failures are logged, never returned.
func (s *Scope) Release(sess types.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(context.Background()); err != nil {
		s.config.Printf("close session error: %v", err)
	}
}

// Do runs fn with a fresh session and releases it afterwards, also when fn panics.
func (s *Scope) Do(ctx context.Context, credentials *types.Credentials, fn func(ctx context.Context, sess types.Session) error) (err error) {
	if s.config.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.OperationTimeout)
		defer cancel()
	}
	sess, err := s.Acquire(ctx, credentials)
	if err != nil {
		return err
	}
	defer s.Release(sess)
	defer func() {
		if e := recover(); e != nil {
			s.config.Printf("session operation panic: %v\n%s", e, runtime.Stack())
			err = fmt.Errorf("session operation panic: %v", e)
		}
	}()
	return fn(ctx, sess)
}
