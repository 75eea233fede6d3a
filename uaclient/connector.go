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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

var policyURIs = map[string]string{
	"none":           ua.SecurityPolicyURINone,
	"basic128rsa15":  ua.SecurityPolicyURIBasic128Rsa15,
	"basic256":       ua.SecurityPolicyURIBasic256,
	"basic256sha256": ua.SecurityPolicyURIBasic256Sha256,
}

// 服务端拒绝身份令牌时返回的状态码
var identityRejections = map[ua.StatusCode]bool{
	ua.StatusBadIdentityTokenRejected: true,
	ua.StatusBadIdentityTokenInvalid:  true,
	ua.StatusBadUserAccessDenied:      true,
}

// Connector opens one gopcua client per session.
type Connector struct {
	config Config
	logger types.Config
}

// NewConnector creates a Connector. When the selected security policy is not None
// and no certificate is configured, a self-signed one is generated under PkiDir.
func NewConnector(config Config, gatewayConfig types.Config) *Connector {
	config.withDefaults()
	return &Connector{config: config, logger: gatewayConfig}
}

// Connect discovers the endpoints, selects one by policy and mode, then activates a
// session with username or anonymous identity.
func (c *Connector) Connect(ctx context.Context, credentials *types.Credentials) (types.Session, error) {
	endpoints, err := opcua.GetEndpoints(ctx, c.config.Endpoint)
	if err != nil {
		return nil, &types.ConnectionError{Endpoint: c.config.Endpoint, Err: err}
	}
	ep := selectEndpoint(endpoints, c.config.SecurityPolicy, c.config.SecurityMode)
	if ep == nil {
		return nil, &types.ConnectionError{
			Endpoint: c.config.Endpoint,
			Err:      fmt.Errorf("no endpoint for policy %q and mode %q", c.config.SecurityPolicy, c.config.SecurityMode),
		}
	}

	tokenType := ua.UserTokenTypeAnonymous
	if credentials != nil {
		tokenType = ua.UserTokenTypeUserName
	}
	if !supportsToken(ep, tokenType) {
		return nil, &types.AuthenticationError{
			Anonymous: credentials == nil,
			Err:       fmt.Errorf("endpoint does not accept %s identity tokens", tokenType),
		}
	}

	opts, err := c.options(ep, tokenType, credentials)
	if err != nil {
		return nil, err
	}
	connectURL := ep.EndpointURL
	if c.config.Local || connectURL == "" {
		connectURL = c.config.Endpoint
	}
	client, err := opcua.NewClient(connectURL, opts...)
	if err != nil {
		return nil, &types.ConnectionError{Endpoint: connectURL, Err: err}
	}
	c.logger.Debugf("connecting to %s policy=%s mode=%s", connectURL, ep.SecurityPolicyURI, ep.SecurityMode)
	if err := client.Connect(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, classify(connectURL, credentials, err)
	}
	return &session{client: client}, nil
}

func (c *Connector) options(ep *ua.EndpointDescription, tokenType ua.UserTokenType, credentials *types.Credentials) ([]opcua.Option, error) {
	opts := []opcua.Option{
		opcua.SecurityFromEndpoint(ep, tokenType),
		opcua.ApplicationURI(c.config.ApplicationURI),
		opcua.DialTimeout(c.config.DialTimeout),
		opcua.RequestTimeout(c.config.RequestTimeout),
		// 每次操作都是独立会话，不需要自动重连
		opcua.AutoReconnect(false),
	}
	if credentials != nil {
		opts = append(opts, opcua.AuthUsername(credentials.Login, credentials.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	if ep.SecurityPolicyURI != ua.SecurityPolicyURINone {
		certFile, keyFile := c.config.CertFile, c.config.KeyFile
		if (certFile == "" || keyFile == "") && c.config.PkiDir != "" {
			var err error
			certFile, keyFile, err = EnsureCertificate(c.config.PkiDir, c.config.ApplicationURI)
			if err != nil {
				return nil, &types.ConnectionError{Endpoint: c.config.Endpoint, Err: err}
			}
		}
		if certFile != "" && keyFile != "" {
			opts = append(opts, opcua.CertificateFile(certFile), opcua.PrivateKeyFile(keyFile))
		}
	}
	return opts, nil
}

// classify maps a failed Connect into the error taxonomy.
func classify(endpoint string, credentials *types.Credentials, err error) error {
	var code ua.StatusCode
	if errors.As(err, &code) && identityRejections[code] {
		return &types.AuthenticationError{Anonymous: credentials == nil, Err: err}
	}
	return &types.ConnectionError{Endpoint: endpoint, Err: err}
}

func supportsToken(ep *ua.EndpointDescription, tokenType ua.UserTokenType) bool {
	// 未通告任何令牌策略时交给服务端决定
	if len(ep.UserIdentityTokens) == 0 {
		return true
	}
	for _, t := range ep.UserIdentityTokens {
		if t.TokenType == tokenType {
			return true
		}
	}
	return false
}

// selectEndpoint 按安全策略和模式选择端点
// 未指定策略时选择安全级别最高的端点
func selectEndpoint(endpoints []*ua.EndpointDescription, policy, mode string) *ua.EndpointDescription {
	var targetMode ua.MessageSecurityMode
	switch strings.ToLower(mode) {
	case "sign":
		targetMode = ua.MessageSecurityModeSign
	case "signandencrypt":
		targetMode = ua.MessageSecurityModeSignAndEncrypt
	case "none":
		targetMode = ua.MessageSecurityModeNone
	}

	if policy == "" {
		var best *ua.EndpointDescription
		for _, ep := range endpoints {
			if targetMode != ua.MessageSecurityModeInvalid && ep.SecurityMode != targetMode {
				continue
			}
			if best == nil || ep.SecurityLevel > best.SecurityLevel {
				best = ep
			}
		}
		return best
	}

	targetURI, ok := policyURIs[strings.ToLower(policy)]
	if !ok {
		// 允许直接配置完整的策略 URI
		targetURI = policy
	}
	if targetURI == ua.SecurityPolicyURINone && targetMode == ua.MessageSecurityModeInvalid {
		targetMode = ua.MessageSecurityModeNone
	}
	for _, ep := range endpoints {
		if ep.SecurityPolicyURI != targetURI {
			continue
		}
		if targetMode == ua.MessageSecurityModeInvalid || ep.SecurityMode == targetMode {
			return ep
		}
	}
	return nil
}
