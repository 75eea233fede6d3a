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

// Package test 提供后端服务的模拟实现，用于单元测试
package test

import (
	"context"
	"errors"
	"sync"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

// AttributeKey addresses one attribute of one node.
type AttributeKey struct {
	NodeID      string
	AttributeID ua.AttributeID
}

// FakeSession is an in-memory types.Session.
type FakeSession struct {
	mu sync.Mutex
	// Attributes holds readable values by node and attribute. Missing node ids read as
	// BadNodeIdUnknown, missing attributes of known nodes as BadAttributeIdInvalid.
	Attributes map[AttributeKey]*ua.DataValue
	// Browses is returned in order: the first entry by Browse, the next ones by BrowseNext.
	Browses []*ua.BrowseResult
	// BrowseFunc answers Browse per node when set, ignoring Browses.
	BrowseFunc func(desc *ua.BrowseDescription) (*ua.BrowseResult, error)
	// BrowseErr is returned by Browse when set.
	BrowseErr    error
	WriteFunc    func(values ...*ua.WriteValue) ([]ua.StatusCode, error)
	CallFunc     func(req *ua.CallMethodRequest) (*ua.CallMethodResult, error)
	HistoryFunc  func(node *ua.HistoryReadValueID, details *ua.ReadRawModifiedDetails) (*ua.HistoryReadResult, error)
	SubscribeErr error
	CloseErr     error

	browseIndex   int
	BrowseCalls   []uint32
	NextCalls     int
	ReleaseCalls  int
	ReadCalls     int
	closed        int
	Subscriptions []*FakeSubscription
}

// NewFakeSession returns an empty session.
func NewFakeSession() *FakeSession {
	return &FakeSession{Attributes: make(map[AttributeKey]*ua.DataValue)}
}

// Set stores a good value for the attribute.
func (s *FakeSession) Set(nodeID string, attributeID ua.AttributeID, value interface{}) *FakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attributes[AttributeKey{nodeID, attributeID}] = &ua.DataValue{
		EncodingMask: ua.DataValueValue,
		Value:        ua.MustVariant(value),
		Status:       ua.StatusOK,
	}
	return s
}

// SetStatus stores a bad status for the attribute.
func (s *FakeSession) SetStatus(nodeID string, attributeID ua.AttributeID, status ua.StatusCode) *FakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attributes[AttributeKey{nodeID, attributeID}] = &ua.DataValue{Status: status}
	return s
}

func (s *FakeSession) Browse(ctx context.Context, desc *ua.BrowseDescription, maxReferences uint32) (*ua.BrowseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BrowseCalls = append(s.BrowseCalls, maxReferences)
	if s.BrowseErr != nil {
		return nil, s.BrowseErr
	}
	if s.BrowseFunc != nil {
		return s.BrowseFunc(desc)
	}
	if len(s.Browses) == 0 {
		return &ua.BrowseResult{StatusCode: ua.StatusOK}, nil
	}
	s.browseIndex = 1
	return s.Browses[0], nil
}

func (s *FakeSession) BrowseNext(ctx context.Context, continuationPoint []byte, release bool) (*ua.BrowseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if release {
		s.ReleaseCalls++
		return &ua.BrowseResult{StatusCode: ua.StatusOK}, nil
	}
	s.NextCalls++
	if s.browseIndex >= len(s.Browses) {
		return &ua.BrowseResult{StatusCode: ua.StatusBadContinuationPointInvalid}, nil
	}
	r := s.Browses[s.browseIndex]
	s.browseIndex++
	return r, nil
}

func (s *FakeSession) Read(ctx context.Context, nodes ...*ua.ReadValueID) ([]*ua.DataValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadCalls++
	values := make([]*ua.DataValue, len(nodes))
	for i, n := range nodes {
		id := n.NodeID.String()
		if dv, ok := s.Attributes[AttributeKey{id, n.AttributeID}]; ok {
			values[i] = dv
			continue
		}
		values[i] = &ua.DataValue{Status: ua.StatusBadNodeIDUnknown}
		for k := range s.Attributes {
			if k.NodeID == id {
				values[i] = &ua.DataValue{Status: ua.StatusBadAttributeIDInvalid}
				break
			}
		}
	}
	return values, nil
}

func (s *FakeSession) Write(ctx context.Context, values ...*ua.WriteValue) ([]ua.StatusCode, error) {
	if s.WriteFunc != nil {
		return s.WriteFunc(values...)
	}
	results := make([]ua.StatusCode, len(values))
	for i := range values {
		results[i] = ua.StatusOK
	}
	return results, nil
}

func (s *FakeSession) Call(ctx context.Context, req *ua.CallMethodRequest) (*ua.CallMethodResult, error) {
	if s.CallFunc != nil {
		return s.CallFunc(req)
	}
	return &ua.CallMethodResult{StatusCode: ua.StatusOK}, nil
}

func (s *FakeSession) HistoryReadRaw(ctx context.Context, node *ua.HistoryReadValueID, details *ua.ReadRawModifiedDetails) (*ua.HistoryReadResult, error) {
	if s.HistoryFunc != nil {
		return s.HistoryFunc(node, details)
	}
	return &ua.HistoryReadResult{StatusCode: ua.StatusOK}, nil
}

func (s *FakeSession) Subscribe(ctx context.Context, params *opcua.SubscriptionParameters, notifyCh chan<- *opcua.PublishNotificationData) (types.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	sub := &FakeSubscription{
		id:     uint32(len(s.Subscriptions) + 1),
		Params: params,
		Notify: notifyCh,
	}
	s.Subscriptions = append(s.Subscriptions, sub)
	return sub, nil
}

func (s *FakeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.CloseErr
}

// Closed returns how many times Close was called.
func (s *FakeSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastSubscription returns the most recent subscription, or nil.
func (s *FakeSession) LastSubscription() *FakeSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Subscriptions) == 0 {
		return nil
	}
	return s.Subscriptions[len(s.Subscriptions)-1]
}

// FakeSubscription records monitor and cancel calls.
type FakeSubscription struct {
	mu         sync.Mutex
	id         uint32
	Params     *opcua.SubscriptionParameters
	Notify     chan<- *opcua.PublishNotificationData
	Items      []*ua.MonitoredItemCreateRequest
	MonitorErr error
	CancelErr  error
	cancelled  int
}

func (s *FakeSubscription) ID() uint32 {
	return s.id
}

func (s *FakeSubscription) Monitor(ctx context.Context, ts ua.TimestampsToReturn, items ...*ua.MonitoredItemCreateRequest) (*ua.CreateMonitoredItemsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MonitorErr != nil {
		return nil, s.MonitorErr
	}
	s.Items = append(s.Items, items...)
	results := make([]*ua.MonitoredItemCreateResult, len(items))
	for i := range items {
		results[i] = &ua.MonitoredItemCreateResult{StatusCode: ua.StatusOK, MonitoredItemID: uint32(i + 1)}
	}
	return &ua.CreateMonitoredItemsResponse{Results: results}, nil
}

func (s *FakeSubscription) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	return s.CancelErr
}

// Cancelled returns how many times Cancel was called.
func (s *FakeSubscription) Cancelled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// FakeConnector hands out Session, or fails the first Failures attempts with Err.
type FakeConnector struct {
	mu       sync.Mutex
	Session  types.Session
	Err      error
	Failures int
	Attempts int
	// Accept, when set, validates the credentials of each attempt.
	Accept func(credentials *types.Credentials) error
}

func (c *FakeConnector) Connect(ctx context.Context, credentials *types.Credentials) (types.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Attempts++
	if c.Accept != nil {
		if err := c.Accept(credentials); err != nil {
			return nil, err
		}
	}
	if c.Err != nil && (c.Failures <= 0 || c.Attempts <= c.Failures) {
		return nil, c.Err
	}
	if c.Session == nil {
		return nil, errors.New("no session configured")
	}
	return c.Session, nil
}

// FakeConn records the text frames written to a client connection.
type FakeConn struct {
	mu       sync.Mutex
	Messages []string
	closed   int
	WriteErr error
}

func (c *FakeConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Messages = append(c.Messages, string(data))
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// Closed returns how many times Close was called.
func (c *FakeConn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns a copy of the written frames.
func (c *FakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Messages...)
}
