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
	"context"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// Credentials 用户名密码身份。nil 表示匿名访问
// Credentials is a login/password identity. A nil *Credentials means anonymous.
type Credentials struct {
	Login    string
	Password string
}

// Connector opens authenticated sessions against the backing server.
type Connector interface {
	// Connect establishes a transport and activates a session for the given identity.
	// It returns *ConnectionError when the server is unreachable and
	// *AuthenticationError when the identity is rejected.
	Connect(ctx context.Context, credentials *Credentials) (Session, error)
}

// Session is one activated session. It is not safe for concurrent use
// by more than one logical operation.
type Session interface {
	// Browse issues a single browse call. maxReferences=0 requests no limit.
	Browse(ctx context.Context, desc *ua.BrowseDescription, maxReferences uint32) (*ua.BrowseResult, error)
	// BrowseNext continues a browse. When release is true the continuation point is
	// only released and no references are returned.
	BrowseNext(ctx context.Context, continuationPoint []byte, release bool) (*ua.BrowseResult, error)
	// Read reads a batch of attributes. The result has one DataValue per request, in order.
	Read(ctx context.Context, nodes ...*ua.ReadValueID) ([]*ua.DataValue, error)
	// Write writes a batch of attributes and returns one status per value.
	Write(ctx context.Context, values ...*ua.WriteValue) ([]ua.StatusCode, error)
	// Call invokes one method.
	Call(ctx context.Context, req *ua.CallMethodRequest) (*ua.CallMethodResult, error)
	// HistoryReadRaw reads raw history of one node.
	HistoryReadRaw(ctx context.Context, node *ua.HistoryReadValueID, details *ua.ReadRawModifiedDetails) (*ua.HistoryReadResult, error)
	// Subscribe creates a backing subscription publishing into notifyCh.
	Subscribe(ctx context.Context, params *opcua.SubscriptionParameters, notifyCh chan<- *opcua.PublishNotificationData) (Subscription, error)
	// Close closes the session and disconnects the transport.
	Close(ctx context.Context) error
}

// Subscription is one backing subscription.
type Subscription interface {
	ID() uint32
	Monitor(ctx context.Context, ts ua.TimestampsToReturn, items ...*ua.MonitoredItemCreateRequest) (*ua.CreateMonitoredItemsResponse, error)
	Cancel(ctx context.Context) error
}
