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

package uaclient

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/test/assert"
)

func endpoints() []*ua.EndpointDescription {
	anonymous := []*ua.UserTokenPolicy{{TokenType: ua.UserTokenTypeAnonymous}}
	both := []*ua.UserTokenPolicy{{TokenType: ua.UserTokenTypeAnonymous}, {TokenType: ua.UserTokenTypeUserName}}
	return []*ua.EndpointDescription{
		{EndpointURL: "opc.tcp://a", SecurityPolicyURI: ua.SecurityPolicyURINone, SecurityMode: ua.MessageSecurityModeNone, SecurityLevel: 0, UserIdentityTokens: anonymous},
		{EndpointURL: "opc.tcp://b", SecurityPolicyURI: ua.SecurityPolicyURIBasic256Sha256, SecurityMode: ua.MessageSecurityModeSign, SecurityLevel: 3, UserIdentityTokens: both},
		{EndpointURL: "opc.tcp://c", SecurityPolicyURI: ua.SecurityPolicyURIBasic256Sha256, SecurityMode: ua.MessageSecurityModeSignAndEncrypt, SecurityLevel: 4, UserIdentityTokens: both},
	}
}

func TestSelectEndpoint(t *testing.T) {
	eps := endpoints()
	assert.Equal(t, "opc.tcp://c", selectEndpoint(eps, "", "").EndpointURL)
	assert.Equal(t, "opc.tcp://b", selectEndpoint(eps, "", "Sign").EndpointURL)
	assert.Equal(t, "opc.tcp://a", selectEndpoint(eps, "None", "").EndpointURL)
	assert.Equal(t, "opc.tcp://a", selectEndpoint(eps, "none", "None").EndpointURL)
	assert.Equal(t, "opc.tcp://b", selectEndpoint(eps, "Basic256Sha256", "sign").EndpointURL)
	assert.Equal(t, "opc.tcp://c", selectEndpoint(eps, "Basic256Sha256", "SignAndEncrypt").EndpointURL)
	assert.Equal(t, "opc.tcp://b", selectEndpoint(eps, ua.SecurityPolicyURIBasic256Sha256, "").EndpointURL)
	assert.True(t, selectEndpoint(eps, "Basic128Rsa15", "") == nil)
	assert.True(t, selectEndpoint(nil, "", "") == nil)
}

func TestSupportsToken(t *testing.T) {
	eps := endpoints()
	assert.True(t, supportsToken(eps[0], ua.UserTokenTypeAnonymous))
	assert.False(t, supportsToken(eps[0], ua.UserTokenTypeUserName))
	assert.True(t, supportsToken(eps[1], ua.UserTokenTypeUserName))
	assert.True(t, supportsToken(&ua.EndpointDescription{}, ua.UserTokenTypeUserName))
}

func TestClassify(t *testing.T) {
	err := classify("opc.tcp://a", nil, ua.StatusBadIdentityTokenRejected)
	var authErr *types.AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.True(t, authErr.Anonymous)

	err = classify("opc.tcp://a", &types.Credentials{Login: "u", Password: "p"}, ua.StatusBadUserAccessDenied)
	assert.True(t, errors.As(err, &authErr))
	assert.False(t, authErr.Anonymous)

	err = classify("opc.tcp://a", nil, errors.New("connection refused"))
	var connErr *types.ConnectionError
	assert.True(t, errors.As(err, &connErr))
	assert.Equal(t, "opc.tcp://a", connErr.Endpoint)
}

func TestNewConfigFromMap(t *testing.T) {
	c, err := NewConfigFromMap(map[string]interface{}{
		"endpoint":       "opc.tcp://localhost:4840",
		"securityPolicy": "Basic256Sha256",
		"requestTimeout": "5s",
		"local":          true,
	})
	assert.Nil(t, err)
	assert.Equal(t, "opc.tcp://localhost:4840", c.Endpoint)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
	assert.Equal(t, DefaultDialTimeout, c.DialTimeout)
	assert.Equal(t, DefaultApplicationURI, c.ApplicationURI)
	assert.True(t, c.Local)
}

func TestEnsureCertificate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pki")
	certFile, keyFile, err := EnsureCertificate(dir, DefaultApplicationURI)
	assert.Nil(t, err)

	data, err := os.ReadFile(certFile)
	assert.Nil(t, err)
	block, _ := pem.Decode(data)
	assert.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(cert.URIs))
	assert.Equal(t, DefaultApplicationURI, cert.URIs[0].String())

	info, err := os.Stat(keyFile)
	assert.Nil(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// 已存在时复用
	again, _, err := EnsureCertificate(dir, DefaultApplicationURI)
	assert.Nil(t, err)
	assert.Equal(t, certFile, again)
	data2, _ := os.ReadFile(certFile)
	assert.Equal(t, string(data), string(data2))
}
