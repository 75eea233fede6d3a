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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rulego/opcua-rest/test/assert"
)

const testConfig = `
server = :8080
debug = true
health_check = @every 1m

[opcua]
endpoint = opc.tcp://plc:4840
security_policy = Basic256Sha256
security_mode = SignAndEncrypt
pki_dir = ./pki
dial_timeout = 3s
max_retry = 5

[subscription]
publishing_interval = 250ms
queue_size = 10
`

func writeConfig(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "config.ini")
	assert.Nil(t, os.WriteFile(file, []byte(testConfig), 0o600))
	return file
}

func TestLoadDefault(t *testing.T) {
	c, err := Load("")
	assert.Nil(t, err)
	assert.Equal(t, DefaultConfig.Server, c.Server)
	assert.Equal(t, DefaultConfig.OpcUa.Endpoint, c.OpcUa.Endpoint)
}

func TestLoadFile(t *testing.T) {
	c, err := Load(writeConfig(t))
	assert.Nil(t, err)
	assert.Equal(t, ":8080", c.Server)
	assert.True(t, c.Debug)
	assert.Equal(t, "@every 1m", c.HealthCheck)
	assert.Equal(t, "opc.tcp://plc:4840", c.OpcUa.Endpoint)
	assert.Equal(t, "Basic256Sha256", c.OpcUa.SecurityPolicy)
	assert.Equal(t, "SignAndEncrypt", c.OpcUa.SecurityMode)
	assert.Equal(t, 3*time.Second, c.OpcUa.DialTimeout)
	assert.Equal(t, 5, c.OpcUa.MaxRetry)
	// 文件中没有的配置保留默认值
	assert.Equal(t, DefaultConfig.OpcUa.RequestTimeout, c.OpcUa.RequestTimeout)

	params := c.SubscriptionParameters()
	assert.Equal(t, 250*time.Millisecond, params.PublishingInterval)
	assert.Equal(t, uint32(10), params.QueueSize)
	assert.Equal(t, float64(10), params.ValueSamplingInterval)

	client := c.ClientConfig()
	assert.Equal(t, "./pki", client.PkiDir)
	assert.Equal(t, "opc.tcp://plc:4840", client.Endpoint)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPCUA_ENDPOINT", "opc.tcp://env:4840")
	t.Setenv("OPCUA_LOCAL", "true")
	t.Setenv("PORT", "9000")
	t.Setenv("DEBUG", "true")

	c, err := Load(writeConfig(t))
	assert.Nil(t, err)
	assert.Equal(t, "opc.tcp://env:4840", c.OpcUa.Endpoint)
	assert.True(t, c.OpcUa.Local)
	assert.Equal(t, ":9000", c.Server)
	// 环境变量没有覆盖的字段使用文件中的值
	assert.Equal(t, "Basic256Sha256", c.OpcUa.SecurityPolicy)
}

func TestOptions(t *testing.T) {
	c := DefaultConfig
	c.Debug = true
	c.OpcUa.OperationTimeout = time.Second
	opts := c.Options(nil)
	assert.Equal(t, 5, len(opts))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.NotNil(t, err)
}
