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

package types_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/test/assert"
)

func TestNewStatusError(t *testing.T) {
	assert.Nil(t, types.NewStatusError("read", ua.StatusOK))

	err := types.NewStatusError("read Value", ua.StatusBadNodeIDUnknown)
	assert.EqualError(t, err, "read Value: BadNodeIdUnknown")
	assert.StatusCode(t, ua.StatusBadNodeIDUnknown, fmt.Errorf("wrapped: %w", err))
}

func TestStatusCodeOf(t *testing.T) {
	code, ok := types.StatusCodeOf(ua.StatusBadTimeout)
	assert.True(t, ok)
	assert.Equal(t, ua.StatusBadTimeout, code)

	_, ok = types.StatusCodeOf(errors.New("plain"))
	assert.False(t, ok)
	_, ok = types.StatusCodeOf(nil)
	assert.False(t, ok)
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "Good", types.StatusName(ua.StatusOK))
	assert.Equal(t, "BadTypeMismatch", types.StatusName(ua.StatusBadTypeMismatch))
	assert.Equal(t, "BadInvalidArgument", types.StatusName(ua.StatusCode(0x80AB0000)))
	assert.Equal(t, "BadCommunicationError", types.StatusName(ua.StatusBadCommunicationError))
	assert.Equal(t, "BadServiceUnsupported", types.StatusName(ua.StatusBadServiceUnsupported))
	assert.Equal(t, "BadNoMatch", types.StatusName(ua.StatusBadNoMatch))
	assert.Equal(t, "BadNodeIdUnknown", types.StatusName(ua.StatusBadNodeIDUnknown))
	assert.Equal(t, "BadSubscriptionIdInvalid", types.StatusName(ua.StatusBadSubscriptionIDInvalid))
	assert.Equal(t, "0x8FFF0000", types.StatusName(ua.StatusCode(0x8FFF0000)))
}

func TestAuthenticationError(t *testing.T) {
	cause := errors.New("BadIdentityTokenRejected")
	err := fmt.Errorf("open session: %w", &types.AuthenticationError{Err: cause})

	var authErr *types.AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.False(t, authErr.Anonymous)
	assert.True(t, errors.Is(err, cause))
	assert.EqualError(t, &types.AuthenticationError{Anonymous: true, Err: cause}, "anonymous identity token not supported: BadIdentityTokenRejected")
}

func TestValidationError(t *testing.T) {
	err := types.NewInputError("Input Error: %s", "bad")
	assert.True(t, err.Input)
	assert.EqualError(t, err, "Input Error: bad")
	assert.False(t, types.NewValidationError("x").Input)
}

func TestNewConfig(t *testing.T) {
	c := types.NewConfig(types.WithMaxRetry(-1), types.WithDebug(true))
	assert.Equal(t, types.DefaultMaxRetry, c.MaxRetry)
	assert.True(t, c.Debug)
	assert.Equal(t, types.DefaultRetryDelay, c.RetryDelay)
}
