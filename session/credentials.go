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
	"encoding/base64"
	"strings"

	"github.com/rulego/opcua-rest/api/types"
)

// ParseBasicAuth extracts credentials from an Authorization header value.
// A missing or malformed header, an empty login or an empty password all yield nil,
// which stands for anonymous access.
func ParseBasicAuth(header string) *types.Credentials {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return nil
	}
	login, password, ok := strings.Cut(string(decoded), ":")
	if !ok || login == "" || password == "" {
		return nil
	}
	return &types.Credentials{Login: login, Password: password}
}
