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

// Package health 定时探测后端 OPC UA 服务是否可达
package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rulego/opcua-rest/api/types"
)

// DefaultSpec 默认探测周期
const DefaultSpec = "@every 30s"

// Status 最近一次探测结果
type Status struct {
	Endpoint  string    `json:"endpoint"`
	Reachable bool      `json:"reachable"`
	CheckedAt time.Time `json:"checkedAt"`
	Latency   string    `json:"latency,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Checker 使用 cron 定时建立一次匿名会话并立即关闭
type Checker struct {
	connector types.Connector
	endpoint  string
	config    types.Config
	spec      string
	timeout   time.Duration
	cron      *cron.Cron
	entryID   cron.EntryID

	mu   sync.RWMutex
	last Status
}

// New 创建探测器，spec 为空时使用 DefaultSpec
func New(connector types.Connector, endpoint string, config types.Config, spec string) *Checker {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Checker{
		connector: connector,
		endpoint:  endpoint,
		config:    config,
		spec:      spec,
		timeout:   10 * time.Second,
		cron:      cron.New(),
		last:      Status{Endpoint: endpoint},
	}
}

// Start 注册定时任务并立即执行一次探测
func (c *Checker) Start() error {
	id, err := c.cron.AddFunc(c.spec, func() {
		c.Check(context.Background())
	})
	if err != nil {
		return err
	}
	c.entryID = id
	c.cron.Start()
	go c.Check(context.Background())
	return nil
}

// Stop 停止定时任务，等待正在执行的探测结束
func (c *Checker) Stop() {
	<-c.cron.Stop().Done()
}

// Check 执行一次探测并记录结果。
// 身份被拒绝说明服务端已经响应，也视为可达
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	started := time.Now()
	status := Status{Endpoint: c.endpoint, CheckedAt: started}

	sess, err := c.connector.Connect(ctx, nil)
	var authErr *types.AuthenticationError
	switch {
	case err == nil:
		status.Reachable = true
		if closeErr := sess.Close(ctx); closeErr != nil {
			c.config.Debugf("health probe close error: %v", closeErr)
		}
	case errors.As(err, &authErr):
		status.Reachable = true
	default:
		status.Error = err.Error()
	}
	status.Latency = time.Since(started).String()
	if !status.Reachable {
		c.config.Printf("health probe %s failed: %s", c.endpoint, status.Error)
	} else {
		c.config.Debugf("health probe %s ok in %s", c.endpoint, status.Latency)
	}

	c.mu.Lock()
	c.last = status
	c.mu.Unlock()
	return status
}

// Last 返回最近一次探测结果，尚未探测时 CheckedAt 为零值
func (c *Checker) Last() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Next 返回下一次探测时间
func (c *Checker) Next() time.Time {
	return c.cron.Entry(c.entryID).Next
}
