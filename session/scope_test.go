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

package session

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/test"
	"github.com/rulego/opcua-rest/test/assert"
)

func newScope(connector types.Connector) *Scope {
	return NewScope(connector, types.NewConfig(
		types.WithLogger(types.DiscardLogger),
		types.WithRetryDelay(time.Millisecond),
	))
}

func TestAcquireRetriesConnectionErrors(t *testing.T) {
	sess := test.NewFakeSession()
	connector := &test.FakeConnector{
		Session:  sess,
		Err:      &types.ConnectionError{Endpoint: "opc.tcp://localhost:4840", Err: errors.New("refused")},
		Failures: 2,
	}
	got, err := newScope(connector).Acquire(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, sess, got)
	assert.Equal(t, 3, connector.Attempts)
}

func TestAcquireGivesUpAfterMaxRetry(t *testing.T) {
	connector := &test.FakeConnector{
		Err: &types.ConnectionError{Endpoint: "opc.tcp://localhost:4840", Err: errors.New("refused")},
	}
	_, err := newScope(connector).Acquire(context.Background(), nil)
	var connErr *types.ConnectionError
	assert.True(t, errors.As(err, &connErr))
	assert.Equal(t, types.DefaultMaxRetry+1, connector.Attempts)
}

func TestAcquireDoesNotRetryAuthentication(t *testing.T) {
	connector := &test.FakeConnector{
		Err: &types.AuthenticationError{Err: errors.New("rejected")},
	}
	_, err := newScope(connector).Acquire(context.Background(), &types.Credentials{Login: "a", Password: "b"})
	var authErr *types.AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, 1, connector.Attempts)
}

func TestAcquireHonoursContext(t *testing.T) {
	connector := &test.FakeConnector{
		Err: &types.ConnectionError{Err: errors.New("refused")},
	}
	scope := NewScope(connector, types.NewConfig(types.WithLogger(types.DiscardLogger), types.WithRetryDelay(time.Hour)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scope.Acquire(ctx, nil)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, connector.Attempts)
}

func TestDoReleasesOnEveryPath(t *testing.T) {
	sess := test.NewFakeSession()
	scope := newScope(&test.FakeConnector{Session: sess})

	err := scope.Do(context.Background(), nil, func(ctx context.Context, s types.Session) error {
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, 1, sess.Closed())

	err = scope.Do(context.Background(), nil, func(ctx context.Context, s types.Session) error {
		return types.NewValidationError("bad input")
	})
	assert.EqualError(t, err, "bad input")
	assert.Equal(t, 2, sess.Closed())

	err = scope.Do(context.Background(), nil, func(ctx context.Context, s types.Session) error {
		panic("decode failed")
	})
	assert.NotNil(t, err)
	assert.Equal(t, 3, sess.Closed())
}

func TestReleaseIgnoresCloseError(t *testing.T) {
	sess := test.NewFakeSession()
	sess.CloseErr = errors.New("already closed")
	scope := newScope(&test.FakeConnector{Session: sess})
	err := scope.Do(context.Background(), nil, func(ctx context.Context, s types.Session) error {
		return nil
	})
	assert.Nil(t, err)
	scope.Release(nil)
}

func TestParseBasicAuth(t *testing.T) {
	encode := func(s string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(s))
	}
	assert.Equal(t, &types.Credentials{Login: "user", Password: "p:w"}, ParseBasicAuth(encode("user:p:w")))
	assert.Nil(t, ParseBasicAuth(encode(":secret")))
	assert.Nil(t, ParseBasicAuth(encode("user:")))
	assert.Nil(t, ParseBasicAuth(encode("nocolon")))
	assert.Nil(t, ParseBasicAuth(""))
	assert.Nil(t, ParseBasicAuth("Bearer abc"))
	assert.Nil(t, ParseBasicAuth("Basic !!!"))
}
