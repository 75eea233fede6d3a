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

package maps

import (
	"testing"
	"time"

	"github.com/rulego/opcua-rest/test/assert"
)

type endpointConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	SecurityPolicy string        `mapstructure:"securityPolicy"`
	Local          bool          `mapstructure:"local"`
	Retries        int           `mapstructure:"retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Tags           []string      `mapstructure:"tags"`
}

func TestMap2Struct(t *testing.T) {
	m := map[string]interface{}{
		"endpoint":       "opc.tcp://localhost:4840",
		"securityPolicy": "None",
		"local":          "true",
		"retries":        float64(5),
		"timeout":        "5s",
		"tags":           []string{"a"},
	}
	var cfg endpointConfig
	err := Map2Struct(m, &cfg)
	assert.Nil(t, err)
	assert.Equal(t, "opc.tcp://localhost:4840", cfg.Endpoint)
	assert.Equal(t, "None", cfg.SecurityPolicy)
	assert.True(t, cfg.Local)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 1, len(cfg.Tags))

	var invalid endpointConfig
	err = Map2Struct(map[string]interface{}{"timeout": "5invalid"}, &invalid)
	assert.NotNil(t, err)

	// 非指针
	err = Map2Struct(m, cfg)
	assert.NotNil(t, err)

	var empty endpointConfig
	err = Map2Struct(nil, &empty)
	assert.Nil(t, err)
	assert.Equal(t, "", empty.Endpoint)

	err = Map2Struct("not a map", &empty)
	assert.NotNil(t, err)
}
