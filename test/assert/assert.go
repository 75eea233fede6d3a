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

// Package assert 测试断言工具
package assert

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

// Equal asserts that two objects are equal. []byte is compared by content.
func Equal(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !ObjectsAreEqual(expected, actual) {
		failf(t, msgAndArgs, "not equal:\nexpected: %#v\nactual  : %#v", expected, actual)
	}
}

func NotEqual(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if ObjectsAreEqual(expected, actual) {
		failf(t, msgAndArgs, "should not be equal: %#v", actual)
	}
}

// Nil asserts that object is nil, including typed nil pointers.
func Nil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !isNil(object) {
		failf(t, msgAndArgs, "expected nil, got: %#v", object)
	}
}

func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if isNil(object) {
		failf(t, msgAndArgs, "expected value not to be nil")
	}
}

func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !value {
		failf(t, msgAndArgs, "should be true")
	}
}

func False(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if value {
		failf(t, msgAndArgs, "should be false")
	}
}

// EqualError asserts that err is not nil and its message equals expected.
func EqualError(t testing.TB, err error, expected string, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		failf(t, msgAndArgs, "expected error %q, got nil", expected)
		return
	}
	if err.Error() != expected {
		failf(t, msgAndArgs, "error message not equal:\nexpected: %q\nactual  : %q", expected, err.Error())
	}
}

// Contains asserts that s contains substr.
func Contains(t testing.TB, s, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(s, substr) {
		failf(t, msgAndArgs, "%q does not contain %q", s, substr)
	}
}

// StatusCode asserts that err carries the status code, directly or wrapped in a
// *types.StatusError.
func StatusCode(t testing.TB, expected ua.StatusCode, err error, msgAndArgs ...interface{}) {
	t.Helper()
	code, ok := types.StatusCodeOf(err)
	if !ok {
		failf(t, msgAndArgs, "expected status %s, got error: %v", types.StatusName(expected), err)
		return
	}
	if code != expected {
		failf(t, msgAndArgs, "status not equal:\nexpected: %s\nactual  : %s", types.StatusName(expected), types.StatusName(code))
	}
}

// Eventually polls condition every tick until it holds or waitFor elapses.
func Eventually(t testing.TB, condition func() bool, waitFor, tick time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			failf(t, msgAndArgs, "condition not satisfied within %s", waitFor)
			return
		}
		time.Sleep(tick)
	}
}

// ObjectsAreEqual compares two objects, treating []byte specially.
func ObjectsAreEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == actual
	}
	exp, ok := expected.([]byte)
	if !ok {
		return reflect.DeepEqual(expected, actual)
	}
	act, ok := actual.([]byte)
	if !ok {
		return false
	}
	return string(exp) == string(act)
}

func isNil(object interface{}) bool {
	if object == nil {
		return true
	}
	value := reflect.ValueOf(object)
	switch value.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return value.IsNil()
	}
	return false
}

func failf(t testing.TB, msgAndArgs []interface{}, format string, args ...interface{}) {
	t.Helper()
	msg := fmt.Sprintf(format, args...)
	if len(msgAndArgs) > 0 {
		msg += fmt.Sprintf("\nmessages: %v", msgAndArgs)
	}
	t.Error(msg)
}
