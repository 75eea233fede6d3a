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
	"context"
	"reflect"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/utils/cast"
	"github.com/rulego/opcua-rest/utils/json"
)

type payload interface {
	env() map[string]interface{}
	marshal() ([]byte, error)
}

// ValuePayload is sent for every data change of a Value subscription.
type ValuePayload struct {
	DataType  string      `json:"dataType"`
	ArrayType string      `json:"arrayType"`
	Value     interface{} `json:"value"`

	status          ua.StatusCode
	sourceTimestamp time.Time
}

func (p *ValuePayload) env() map[string]interface{} {
	return map[string]interface{}{
		"value":           p.Value,
		"dataType":        p.DataType,
		"status":          types.StatusName(p.status),
		"sourceTimestamp": p.sourceTimestamp,
	}
}

func (p *ValuePayload) marshal() ([]byte, error) {
	return json.Marshal(p)
}

// EventPayload is sent for every event of an EventNotifier subscription.
type EventPayload struct {
	EventType     interface{} `json:"EventType"`
	EventTypeName string      `json:"EventTypeName"`
	SourceNode    interface{} `json:"SourceNode"`
	SourceName    interface{} `json:"SourceName"`
	Time          interface{} `json:"Time"`
	Message       interface{} `json:"Message"`
}

func (p *EventPayload) env() map[string]interface{} {
	return map[string]interface{}{
		"EventType":     p.EventType,
		"EventTypeName": p.EventTypeName,
		"SourceNode":    p.SourceNode,
		"SourceName":    p.SourceName,
		"Time":          p.Time,
		"Message":       p.Message,
	}
}

func (p *EventPayload) marshal() ([]byte, error) {
	return json.Marshal(p)
}

func (m *Multiplexer) payloads(e *Entry, value interface{}) []payload {
	var out []payload
	switch n := value.(type) {
	case *ua.DataChangeNotification:
		for _, item := range n.MonitoredItems {
			if item == nil {
				continue
			}
			out = append(out, NewValuePayload(item.Value))
		}
	case *ua.EventNotificationList:
		for _, event := range n.Events {
			if event == nil {
				continue
			}
			out = append(out, m.eventPayload(e, event.EventFields))
		}
	}
	return out
}

// NewValuePayload shapes a data value into the envelope sent to clients.
func NewValuePayload(dv *ua.DataValue) *ValuePayload {
	p := &ValuePayload{}
	if dv == nil {
		return p
	}
	p.status = dv.Status
	p.sourceTimestamp = dv.SourceTimestamp
	if dv.Value == nil {
		return p
	}
	raw := dv.Value.Value()
	p.DataType = attribute.DataTypeName(ua.NewNumericNodeID(0, uint32(dv.Value.Type())))
	p.ArrayType = "Scalar"
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		p.ArrayType = "Array"
	}
	p.Value = attribute.Simplify(raw)
	return p
}

func (m *Multiplexer) eventPayload(e *Entry, fields []*ua.Variant) *EventPayload {
	field := func(i int) interface{} {
		if i < len(fields) {
			return attribute.Simplify(fields[i])
		}
		return nil
	}
	p := &EventPayload{
		EventType:  field(0),
		SourceNode: field(1),
		SourceName: field(2),
		Time:       field(3),
		Message:    field(4),
	}
	if len(fields) > 0 && fields[0] != nil {
		if nodeID, ok := fields[0].Value().(*ua.NodeID); ok {
			p.EventTypeName = m.displayName(e, nodeID)
		}
	}
	return p
}

// displayName resolves the DisplayName text of a node through the connection's session.
func (m *Multiplexer) displayName(e *Entry, nodeID *ua.NodeID) string {
	key := nodeID.String()
	if v := m.names.Get(key); v != nil {
		return cast.ToString(v)
	}
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()
	if sess == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.params.CloseTimeout)
	defer cancel()
	dv, err := attribute.Read(ctx, sess, nodeID, attribute.DisplayName)
	if err != nil {
		m.config.Debugf("read display name of %s error: %v", key, err)
		return ""
	}
	name := attribute.DecodeLocalizedText(attribute.RawValue(dv)).Text
	m.names.Set(key, name, m.params.NameTTL)
	return name
}
