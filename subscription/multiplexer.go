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

// Package subscription multiplexes client connections onto backing subscriptions.
// Every connection gets its own session, one subscription and one monitored item,
// torn down when the connection closes.
package subscription

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/session"
	"github.com/rulego/opcua-rest/utils/cache"
)

// Kind 订阅类型
type Kind int

const (
	KindValue Kind = iota + 1
	KindEventNotifier
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindEventNotifier:
		return "EventNotifier"
	}
	return ""
}

// Attribute returns the attribute monitored for the kind.
func (k Kind) Attribute() attribute.Kind {
	if k == KindEventNotifier {
		return attribute.EventNotifier
	}
	return attribute.Value
}

const (
	MsgNotSupported       = "Changing the settings of the subscription has not yet been implemented."
	MsgEventNotifier      = "You cannot subscribe to this EventNotifier!"
	MsgNothingToSubscribe = "There's no Value or EventNotifier attribute that you can subscribe to."
	MsgNoAuthorization    = "You did not provide any Authorization in the Header. Authorization should be Basic Auth."
	MsgWrongCredentials   = "The username or password is wrong."
	MsgSubscriptionLost   = "The subscription was terminated by the server."
)

// errEntryClosed Open 等待期间连接已被关闭
var errEntryClosed = errors.New("connection closed while opening")

// fatalStatus 会话或订阅已失效，收到后关闭连接
var fatalStatus = map[ua.StatusCode]bool{
	ua.StatusBadSessionIDInvalid:      true,
	ua.StatusBadSessionClosed:         true,
	ua.StatusBadSubscriptionIDInvalid: true,
	ua.StatusBadNoSubscription:        true,
	ua.StatusBadConnectionClosed:      true,
	ua.StatusBadSecureChannelClosed:   true,
}

// IsFatal reports whether a publish error means the session or the subscription is gone.
func IsFatal(err error) bool {
	code, ok := types.StatusCodeOf(err)
	return ok && fatalStatus[code]
}

// EventFields are the event fields selected for EventNotifier subscriptions, in order.
var EventFields = []string{"EventType", "SourceNode", "SourceName", "Time", "Message"}

// Parameters of the backing subscription and monitored item.
type Parameters struct {
	PublishingInterval         time.Duration
	LifetimeCount              uint32
	MaxKeepAliveCount          uint32
	MaxNotificationsPerPublish uint32
	// ValueSamplingInterval and EventSamplingInterval are in milliseconds.
	ValueSamplingInterval float64
	EventSamplingInterval float64
	QueueSize             uint32
	DiscardOldest         bool
	// NotifyBuffer is the capacity of the per connection notification channel.
	NotifyBuffer int
	// CloseTimeout bounds the cancel call made during teardown.
	CloseTimeout time.Duration
	// NameTTL is how long resolved event type names are cached. Expired names are
	// collected every NameTTL.
	NameTTL time.Duration
}

// DefaultParameters returns the parameters used for every subscription.
func DefaultParameters() Parameters {
	return Parameters{
		PublishingInterval:         1000 * time.Millisecond,
		LifetimeCount:              100,
		MaxKeepAliveCount:          10,
		MaxNotificationsPerPublish: 1000,
		ValueSamplingInterval:      10,
		EventSamplingInterval:      3000,
		QueueSize:                  1,
		DiscardOldest:              true,
		NotifyBuffer:               64,
		CloseTimeout:               5 * time.Second,
		NameTTL:                    10 * time.Minute,
	}
}

// Request describes the subscription a client asked for.
type Request struct {
	NodeID      *ua.NodeID
	Credentials *types.Credentials
	// Filter is an optional boolean expression evaluated per notification.
	Filter string
}

// Multiplexer owns the connection registry and the lifecycle of every entry.
type Multiplexer struct {
	scope    *session.Scope
	registry *Registry
	config   types.Config
	params   Parameters
	names    *cache.MemoryCache
	handle   uint32
}

// NewMultiplexer creates a Multiplexer using scope for the per connection sessions.
func NewMultiplexer(scope *session.Scope, config types.Config, params Parameters) *Multiplexer {
	return &Multiplexer{
		scope:    scope,
		registry: NewRegistry(),
		config:   config,
		params:   params,
		names:    cache.NewMemoryCache(params.NameTTL),
	}
}

// Registry returns the connection registry.
func (m *Multiplexer) Registry() *Registry {
	return m.registry
}

// Open registers conn and starts monitoring. On failure a text message is written to conn,
// conn is closed and the entry is removed; the returned error is for logging only.
func (m *Multiplexer) Open(ctx context.Context, conn Conn, req Request) (string, error) {
	e := newEntry(uuid.Must(uuid.NewV4()).String(), conn, req.NodeID)
	if err := m.registry.Add(e); err != nil {
		_ = conn.Close()
		return "", err
	}
	m.config.Debugf("ws connection %s opened for %s", e.ID, req.NodeID)

	if req.Filter != "" {
		f, err := NewFilter(req.Filter)
		if err != nil {
			m.fail(e, "Invalid filter: "+err.Error())
			return e.ID, err
		}
		e.filter = f
	}

	sess, err := m.scope.Acquire(ctx, req.Credentials)
	if err != nil {
		m.fail(e, failureMessage(err))
		return e.ID, err
	}
	e.mu.Lock()
	if e.closed() {
		e.mu.Unlock()
		m.scope.Release(sess)
		return e.ID, errEntryClosed
	}
	e.session = sess
	e.mu.Unlock()

	kind, msg := m.selectKind(ctx, sess, req.NodeID)
	if kind == 0 {
		m.fail(e, msg)
		return e.ID, errors.New(msg)
	}

	if err := m.monitor(ctx, e, sess, kind); err != nil {
		if errors.Is(err, errEntryClosed) {
			return e.ID, err
		}
		m.fail(e, failureMessage(err))
		return e.ID, err
	}
	return e.ID, nil
}

// selectKind prefers a subscribable EventNotifier over Value.
func (m *Multiplexer) selectKind(ctx context.Context, sess types.Session, nodeID *ua.NodeID) (Kind, string) {
	values, err := sess.Read(ctx,
		&ua.ReadValueID{NodeID: nodeID, AttributeID: attribute.EventNotifier.ID()},
		&ua.ReadValueID{NodeID: nodeID, AttributeID: attribute.Value.ID()},
	)
	if err != nil {
		return 0, failureMessage(err)
	}
	if len(values) != 2 {
		return 0, MsgNothingToSubscribe
	}
	eventReadable := values[0] != nil && values[0].Status == ua.StatusOK
	if eventReadable {
		if flags, ok := attribute.Decode(attribute.EventNotifier, attribute.RawValue(values[0])).Value.(attribute.FlagSet); ok && flags.Has("SubscribeToEvents") {
			return KindEventNotifier, ""
		}
	}
	if values[1] != nil && values[1].Status == ua.StatusOK {
		return KindValue, ""
	}
	if eventReadable {
		return 0, MsgEventNotifier
	}
	return 0, MsgNothingToSubscribe
}

func (m *Multiplexer) monitor(ctx context.Context, e *Entry, sess types.Session, kind Kind) error {
	notifyCh := make(chan *opcua.PublishNotificationData, m.params.NotifyBuffer)
	sub, err := sess.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval:                   m.params.PublishingInterval,
		LifetimeCount:              m.params.LifetimeCount,
		MaxKeepAliveCount:          m.params.MaxKeepAliveCount,
		MaxNotificationsPerPublish: m.params.MaxNotificationsPerPublish,
	}, notifyCh)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.closed() {
		e.mu.Unlock()
		m.cancel(e.ID, sub)
		return errEntryClosed
	}
	e.subscription = sub
	e.kind = kind
	e.mu.Unlock()

	res, err := sub.Monitor(ctx, ua.TimestampsToReturnSource, m.itemRequest(e.NodeID, kind))
	if err != nil {
		return err
	}
	if res == nil || len(res.Results) == 0 {
		return &types.StatusError{Op: "monitor", Code: ua.StatusBadNothingToDo}
	}
	if err := types.NewStatusError("monitor", res.Results[0].StatusCode); err != nil {
		return err
	}
	e.mu.Lock()
	e.monitoredItemID = res.Results[0].MonitoredItemID
	e.mu.Unlock()
	m.config.Debugf("ws connection %s monitoring %s of %s on subscription %d", e.ID, kind, e.NodeID, sub.ID())

	go m.consume(e, notifyCh)
	return nil
}

func (m *Multiplexer) itemRequest(nodeID *ua.NodeID, kind Kind) *ua.MonitoredItemCreateRequest {
	params := &ua.MonitoringParameters{
		ClientHandle:     atomic.AddUint32(&m.handle, 1),
		SamplingInterval: m.params.ValueSamplingInterval,
		QueueSize:        m.params.QueueSize,
		DiscardOldest:    m.params.DiscardOldest,
	}
	if kind == KindEventNotifier {
		params.SamplingInterval = m.params.EventSamplingInterval
		params.Filter = eventFilter()
	}
	return &ua.MonitoredItemCreateRequest{
		ItemToMonitor: &ua.ReadValueID{
			NodeID:       nodeID,
			AttributeID:  kind.Attribute().ID(),
			DataEncoding: &ua.QualifiedName{},
		},
		MonitoringMode:      ua.MonitoringModeReporting,
		RequestedParameters: params,
	}
}

func eventFilter() *ua.ExtensionObject {
	selects := make([]*ua.SimpleAttributeOperand, len(EventFields))
	for i, field := range EventFields {
		selects[i] = &ua.SimpleAttributeOperand{
			TypeDefinitionID: ua.NewNumericNodeID(0, id.BaseEventType),
			BrowsePath:       []*ua.QualifiedName{{NamespaceIndex: 0, Name: field}},
			AttributeID:      attribute.Value.ID(),
		}
	}
	filter := ua.EventFilter{
		SelectClauses: selects,
		WhereClause:   &ua.ContentFilter{},
	}
	return &ua.ExtensionObject{
		EncodingMask: ua.ExtensionObjectBinary,
		TypeID:       &ua.ExpandedNodeID{NodeID: ua.NewNumericNodeID(0, id.EventFilter_Encoding_DefaultBinary)},
		Value:        filter,
	}
}

// consume is the single consumer of one connection's notifications.
func (m *Multiplexer) consume(e *Entry, notifyCh <-chan *opcua.PublishNotificationData) {
	for {
		select {
		case <-e.done:
			return
		case data := <-notifyCh:
			m.deliver(e.ID, data)
		}
	}
}

// deliver writes one notification to the connection. It returns false when the
// notification was dropped, e.g. because the connection is gone.
func (m *Multiplexer) deliver(id string, data *opcua.PublishNotificationData) bool {
	e, ok := m.registry.Get(id)
	if !ok || data == nil {
		return false
	}
	if data.Error != nil {
		m.config.Printf("ws connection %s subscription error: %v", id, data.Error)
		if IsFatal(data.Error) {
			m.fail(e, MsgSubscriptionLost)
		}
		return false
	}
	delivered := false
	for _, payload := range m.payloads(e, data.Value) {
		if match, err := e.filter.Match(payload.env()); err != nil {
			m.config.Printf("ws connection %s filter %q error: %v", id, e.filter, err)
			continue
		} else if !match {
			continue
		}
		b, err := payload.marshal()
		if err != nil {
			m.config.Printf("ws connection %s marshal error: %v", id, err)
			continue
		}
		if err := e.Conn.WriteText(b); err != nil {
			m.config.Printf("ws connection %s write error: %v", id, err)
			continue
		}
		delivered = true
	}
	return delivered
}

// OnMessage answers a client message. Subscriptions cannot be changed after creation.
func (m *Multiplexer) OnMessage(id string, data []byte) {
	if e, ok := m.registry.Get(id); ok {
		if err := e.Conn.WriteText([]byte(MsgNotSupported)); err != nil {
			m.config.Printf("ws connection %s write error: %v", id, err)
		}
	}
}

// Close tears the connection down: unregister, cancel the subscription, release the
// session and close the socket. Every step runs even when an earlier one fails.
// Closing an unknown id is a no-op.
func (m *Multiplexer) Close(id string) {
	e := m.registry.Remove(id)
	if e == nil {
		return
	}
	e.stop()

	e.mu.Lock()
	sub, sess := e.subscription, e.session
	e.mu.Unlock()

	if sub != nil {
		m.cancel(id, sub)
	}
	m.scope.Release(sess)
	if err := e.Conn.Close(); err != nil {
		m.config.Debugf("ws connection %s close error: %v", id, err)
	}
	m.config.Debugf("ws connection %s closed", id)
}

// CloseAll closes every live connection.
func (m *Multiplexer) CloseAll() {
	for _, id := range m.registry.IDs() {
		m.Close(id)
	}
	m.names.StopGC()
}

func (m *Multiplexer) cancel(id string, sub types.Subscription) {
	ctx, cancel := context.WithTimeout(context.Background(), m.params.CloseTimeout)
	defer cancel()
	if err := sub.Cancel(ctx); err != nil {
		m.config.Printf("ws connection %s cancel subscription error: %v", id, err)
	}
}

func (m *Multiplexer) fail(e *Entry, msg string) {
	if err := e.Conn.WriteText([]byte(msg)); err != nil {
		m.config.Debugf("ws connection %s write error: %v", e.ID, err)
	}
	m.Close(e.ID)
}

func failureMessage(err error) string {
	var authErr *types.AuthenticationError
	if errors.As(err, &authErr) {
		if authErr.Anonymous {
			return MsgNoAuthorization
		}
		return MsgWrongCredentials
	}
	return err.Error()
}
