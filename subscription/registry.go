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

package subscription

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

// Conn is the client side of one connection. WriteText must be safe to call
// from the notification consumer and the read loop at the same time.
type Conn interface {
	WriteText(data []byte) error
	Close() error
}

// Entry 一个客户端连接对应的订阅记录
// Entry is the state of one client connection: exactly one backing subscription
// and one monitored item.
type Entry struct {
	ID     string
	Conn   Conn
	NodeID *ua.NodeID

	mu              sync.Mutex
	kind            Kind
	session         types.Session
	subscription    types.Subscription
	monitoredItemID uint32
	filter          *Filter
	done            chan struct{}
	stopOnce        sync.Once
}

func newEntry(id string, conn Conn, nodeID *ua.NodeID) *Entry {
	return &Entry{ID: id, Conn: conn, NodeID: nodeID, done: make(chan struct{})}
}

// Kind returns the subscription kind, zero until monitoring started.
func (e *Entry) Kind() Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind
}

// MonitoredItemID returns the id assigned by the server.
func (e *Entry) MonitoredItemID() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.monitoredItemID
}

// closed 调用方持有 e.mu
func (e *Entry) closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Entry) stop() {
	e.stopOnce.Do(func() {
		close(e.done)
	})
}

// Registry maps connection ids to entries. Lookups and mutations are serialized.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers e. An id can only be registered once.
func (r *Registry) Add(e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.ID]; ok {
		return fmt.Errorf("connection %s already registered", e.ID)
	}
	r.entries[e.ID] = e
	return nil
}

// Get returns the live entry of id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Remove unregisters id and returns its entry, or nil when it was not registered.
func (r *Registry) Remove(id string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)
	return e
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs returns the sorted ids of live connections.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
