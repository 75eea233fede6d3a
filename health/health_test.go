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

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/test"
	"github.com/rulego/opcua-rest/test/assert"
)

func TestCheck(t *testing.T) {
	sess := test.NewFakeSession()
	connector := &test.FakeConnector{Session: sess}
	checker := New(connector, "opc.tcp://localhost:4840", types.NewConfig(), "")

	assert.True(t, checker.Last().CheckedAt.IsZero())
	status := checker.Check(context.Background())
	assert.True(t, status.Reachable)
	assert.Equal(t, "", status.Error)
	assert.Equal(t, 1, sess.Closed())
	assert.Equal(t, status, checker.Last())

	// 身份被拒绝也说明服务端可达
	connector.Err = &types.AuthenticationError{Anonymous: true, Err: errors.New("anonymous not supported")}
	assert.True(t, checker.Check(context.Background()).Reachable)

	connector.Err = &types.ConnectionError{Endpoint: "opc.tcp://localhost:4840", Err: errors.New("refused")}
	status = checker.Check(context.Background())
	assert.False(t, status.Reachable)
	assert.Equal(t, "connect to opc.tcp://localhost:4840: refused", status.Error)
	assert.False(t, checker.Last().Reachable)
}

func TestStartStop(t *testing.T) {
	connector := &test.FakeConnector{Session: test.NewFakeSession()}
	checker := New(connector, "opc.tcp://localhost:4840", types.NewConfig(), "@every 1h")
	assert.Nil(t, checker.Start())
	defer checker.Stop()

	assert.Eventually(t, func() bool {
		return !checker.Last().CheckedAt.IsZero()
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, checker.Last().Reachable)
	assert.True(t, checker.Next().After(time.Now()))
}

func TestInvalidSpec(t *testing.T) {
	checker := New(&test.FakeConnector{}, "", types.NewConfig(), "every now and then")
	assert.NotNil(t, checker.Start())
}
