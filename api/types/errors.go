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
	"errors"
	"fmt"
	"strings"

	"github.com/gopcua/opcua/ua"
)

// ConnectionError the backing server could not be reached.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// AuthenticationError the backing server rejected the identity token.
// Anonymous is set when no credentials were given and the server does not accept
// anonymous sessions.
type AuthenticationError struct {
	Anonymous bool
	Err       error
}

func (e *AuthenticationError) Error() string {
	if e.Anonymous {
		return fmt.Sprintf("anonymous identity token not supported: %v", e.Err)
	}
	return fmt.Sprintf("identity token rejected: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// StatusError a non-good status returned by an operation.
type StatusError struct {
	Op   string
	Code ua.StatusCode
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, StatusName(e.Code))
}

func (e *StatusError) Unwrap() error {
	return e.Code
}

// NewStatusError returns nil when code is good.
func NewStatusError(op string, code ua.StatusCode) error {
	if code == ua.StatusOK {
		return nil
	}
	return &StatusError{Op: op, Code: code}
}

// ValidationError malformed input detected before any protocol call.
// Input is set for semantic method-argument mismatches.
type ValidationError struct {
	Msg   string
	Input bool
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, v ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, v...)}
}

func NewInputError(format string, v ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, v...), Input: true}
}

// NotFoundError the addressed resource (reference index, method) does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

// ForbiddenError the node's metadata does not allow the operation.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string {
	return e.Msg
}

// StatusCodeOf extracts the status code carried by err, if any.
func StatusCodeOf(err error) (ua.StatusCode, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	var code ua.StatusCode
	if errors.As(err, &code) {
		return code, true
	}
	return 0, false
}

// StatusName returns the symbolic name of a status code, e.g. BadNodeIdUnknown.
// Codes unknown to the stack are rendered in hex.
func StatusName(code ua.StatusCode) string {
	if code == ua.StatusOK {
		return "Good"
	}
	if d, ok := ua.StatusCodes[code]; ok && d.Name != "" {
		// ua 包的名称带 Status 前缀且写作 ID
		return strings.ReplaceAll(strings.TrimPrefix(d.Name, "Status"), "ID", "Id")
	}
	return fmt.Sprintf("0x%08X", uint32(code))
}
