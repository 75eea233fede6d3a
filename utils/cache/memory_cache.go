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

// Package cache 带过期时间的内存缓存，用于缓存节点显示名等很少变化的元数据
package cache

import (
	"sync"
	"time"
)

// MemoryCache is an in-memory cache with optional per-item expiration.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	stopGc     chan struct{}
	ticker     *time.Ticker
	gcInterval time.Duration
}

type item struct {
	value interface{}
	// unix nano, 0 never expires
	expiration int64
}

func (it item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}

// NewMemoryCache creates a cache. Expired items are collected every gcInterval
// (5 minutes when gcInterval <= 0) once the first expirable item is stored.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	if gcInterval <= 0 {
		gcInterval = time.Minute * 5
	}
	return &MemoryCache{
		items:      make(map[string]item),
		gcInterval: gcInterval,
	}
}

// Set stores a value. ttl <= 0 never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	startGC := expiration > 0 && c.ticker == nil
	c.mu.Unlock()

	if startGC {
		c.StartGC()
	}
}

// Get returns the value, or nil when missing or expired.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || it.expired(time.Now().UnixNano()) {
		return nil
	}
	return it.value
}

// StartGC starts the collector goroutine. It is a no-op when already running.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		return
	}
	ticker := time.NewTicker(c.gcInterval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.stopGc = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()
}

// StopGC stops the collector goroutine. Safe to call more than once.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		close(c.stopGc)
		c.ticker = nil
		c.stopGc = nil
	}
}

func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.items {
		if v.expired(now) {
			delete(c.items, k)
		}
	}
}
