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

package service

import (
	"context"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/utils/cast"
)

// 节点文档中内嵌的属性个数：NodeId, NodeClass, BrowseName, DisplayName, Description
const embeddedAttributes = 5

// Node is the summary of one node.
type Node struct {
	NodeID string
	// Embedded holds the first attributes that read with a good status.
	Embedded map[string]interface{}
	// Available lists every attribute of the node that reads with a good status.
	Available            []string
	HasReferences        bool
	HasMethods           bool
	HistoryRead          bool
	SubscribableToEvents bool
	Executable           bool
}

// Subscribable reports whether a subscription can target the node.
func (n *Node) Subscribable() bool {
	if n.SubscribableToEvents {
		return true
	}
	for _, a := range n.Available {
		if a == attribute.Value.String() {
			return true
		}
	}
	return false
}

// Node reads every attribute of the node and browses its forward references.
func (s *Service) Node(ctx context.Context, credentials *types.Credentials, nodeID string) (*Node, error) {
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	var node *Node
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		refs, err := s.browse(ctx, sess, nid, 0)
		if err != nil {
			return err
		}
		node, err = readNode(ctx, sess, nid)
		if err != nil {
			return err
		}
		node.HasReferences = len(refs) > 0
		for _, ref := range refs {
			if ref.IsForward && ref.NodeClass == "Method" {
				node.HasMethods = true
				break
			}
		}
		return nil
	})
	return node, err
}

func readNode(ctx context.Context, sess types.Session, nid *ua.NodeID) (*Node, error) {
	kinds := attribute.Kinds()
	req := make([]*ua.ReadValueID, len(kinds))
	for i, k := range kinds {
		req[i] = &ua.ReadValueID{NodeID: nid, AttributeID: k.ID()}
	}
	values, err := sess.Read(ctx, req...)
	if err != nil {
		return nil, err
	}
	node := &Node{NodeID: nid.String(), Embedded: make(map[string]interface{})}
	for i, k := range kinds {
		if i >= len(values) || !good(values[i]) {
			continue
		}
		raw := attribute.RawValue(values[i])
		if i < embeddedAttributes {
			node.Embedded[k.String()] = summary(k, raw)
		}
		switch k {
		case attribute.EventNotifier:
			flags := attribute.EventNotifierFlags.Decode(cast64(raw))
			node.SubscribableToEvents = flags.Has("SubscribeToEvents")
			node.HistoryRead = node.HistoryRead || flags.Has("HistoryRead")
		case attribute.UserAccessLevel:
			node.HistoryRead = node.HistoryRead || attribute.AccessLevelFlags.Decode(cast64(raw)).Has("HistoryRead")
		case attribute.UserExecutable:
			node.Executable, _ = raw.(bool)
		}
		node.Available = append(node.Available, k.String())
	}
	if len(node.Available) == 0 && len(values) > 0 {
		// 所有属性都读取失败，说明节点不存在
		return nil, types.NewStatusError("read "+nid.String(), values[0].Status)
	}
	return node, nil
}

func cast64(raw interface{}) uint64 {
	v, _ := cast.ToUint64E(raw)
	return v
}

func summary(k attribute.Kind, raw interface{}) interface{} {
	switch k {
	case attribute.BrowseName:
		if q, ok := raw.(*ua.QualifiedName); ok && q != nil {
			return q.Name
		}
	case attribute.NodeClass:
		return attribute.NodeClassName(raw)
	case attribute.DisplayName, attribute.Description:
		return attribute.DecodeLocalizedText(raw)
	}
	return attribute.Simplify(raw)
}

// AttributeValue is the result of an attribute read.
type AttributeValue struct {
	NodeID          string
	Kind            attribute.Kind
	Value           interface{}
	Decoded         *attribute.Fact
	Writable        bool
	SourceTimestamp time.Time
	ServerTimestamp time.Time
}

// Attribute reads one attribute, decodes it and checks whether the caller may write it.
func (s *Service) Attribute(ctx context.Context, credentials *types.Credentials, nodeID, attributeID string) (*AttributeValue, error) {
	kind, err := attribute.ParseKind(attributeID)
	if err != nil {
		return nil, err
	}
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	var result *AttributeValue
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		dv, err := attribute.Read(ctx, sess, nid, kind)
		if err != nil {
			return err
		}
		raw := attribute.RawValue(dv)
		result = &AttributeValue{
			NodeID:          nid.String(),
			Kind:            kind,
			Value:           attribute.Simplify(raw),
			Decoded:         attribute.Decode(kind, raw),
			Writable:        attribute.IsWritable(ctx, sess, nid, kind),
			SourceTimestamp: dv.SourceTimestamp,
			ServerTimestamp: dv.ServerTimestamp,
		}
		return nil
	})
	return result, err
}

// WritePayload is the body of an attribute write:
//
//	{"indexRange": "", "value": [{"value": {"dataType": "Double", "value": 1.5}}]}
type WritePayload struct {
	IndexRange string       `mapstructure:"indexRange"`
	Value      []WriteEntry `mapstructure:"value"`
}

type WriteEntry struct {
	Value struct {
		DataType interface{} `mapstructure:"dataType"`
		Value    interface{} `mapstructure:"value"`
	} `mapstructure:"value"`
}

// WriteAttribute writes the first value of the payload to the attribute.
func (s *Service) WriteAttribute(ctx context.Context, credentials *types.Credentials, nodeID, attributeID string, payload *WritePayload) error {
	kind, err := attribute.ParseKind(attributeID)
	if err != nil {
		return err
	}
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return err
	}
	if payload == nil || len(payload.Value) == 0 {
		return types.NewValidationError("The request body must contain a value.")
	}
	entry := payload.Value[0].Value
	variant, err := attribute.NewVariant(entry.DataType, entry.Value)
	if err != nil {
		return err
	}
	wv := &ua.WriteValue{
		NodeID:      nid,
		AttributeID: kind.ID(),
		IndexRange:  payload.IndexRange,
		Value: &ua.DataValue{
			EncodingMask: ua.DataValueValue,
			Value:        variant,
		},
	}
	return s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		results, err := sess.Write(ctx, wv)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return &types.StatusError{Op: "write " + kind.String(), Code: ua.StatusBadNothingToDo}
		}
		return types.NewStatusError("write "+kind.String(), results[0])
	})
}
