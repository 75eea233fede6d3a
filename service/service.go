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

// Package service 每个 HTTP 请求对应的同步操作：节点、属性、引用、方法、调用、写入、历史读取
//
// Every operation runs inside one session obtained from the session scope and released
// when it returns.
package service

import (
	"context"
	"strings"

	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/browse"
	"github.com/rulego/opcua-rest/session"
)

// RootNode 未指定节点时的入口节点
const RootNode = "RootFolder"

// 常用节点的别名
var aliases = map[string]uint32{
	"RootFolder":    id.RootFolder,
	"ObjectsFolder": id.ObjectsFolder,
	"TypesFolder":   id.TypesFolder,
	"ViewsFolder":   id.ViewsFolder,
	"Server":        id.Server,
}

// ParseNodeID parses the textual form of a node id ("ns=2;s=Pump") or one of the
// well-known folder aliases.
func ParseNodeID(s string) (*ua.NodeID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = RootNode
	}
	if n, ok := aliases[s]; ok {
		return ua.NewNumericNodeID(0, n), nil
	}
	n, err := ua.ParseNodeID(s)
	if err != nil {
		return nil, &types.StatusError{Op: "parse node id " + s, Code: ua.StatusBadNodeIDInvalid}
	}
	return n, nil
}

// Service runs the synchronous gateway operations.
type Service struct {
	scope  *session.Scope
	config types.Config
}

// New creates a Service.
func New(scope *session.Scope, config types.Config) *Service {
	return &Service{scope: scope, config: config}
}

// Browse returns up to maxReferences forward references of the node.
func (s *Service) Browse(ctx context.Context, credentials *types.Credentials, nodeID string, maxReferences uint32) ([]browse.NodeReference, error) {
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	var refs []browse.NodeReference
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		refs, err = s.browse(ctx, sess, nid, maxReferences)
		return err
	})
	return refs, err
}

func (s *Service) browse(ctx context.Context, sess types.Session, nid *ua.NodeID, maxReferences uint32, opts ...browse.Option) ([]browse.NodeReference, error) {
	opts = append(opts, browse.WithLogger(s.config.Logger))
	res, err := browse.All(ctx, sess, nid, maxReferences, opts...)
	if err != nil {
		return nil, err
	}
	if err := types.NewStatusError("browse "+nid.String(), res.Status); err != nil {
		return nil, err
	}
	return res.References, nil
}

// readMany reads the same attribute of several nodes in one request.
func readMany(ctx context.Context, sess types.Session, attributeID ua.AttributeID, nodes ...string) ([]*ua.DataValue, error) {
	req := make([]*ua.ReadValueID, 0, len(nodes))
	for _, n := range nodes {
		nid, err := ua.ParseNodeID(n)
		if err != nil {
			return nil, &types.StatusError{Op: "parse node id " + n, Code: ua.StatusBadNodeIDInvalid}
		}
		req = append(req, &ua.ReadValueID{NodeID: nid, AttributeID: attributeID})
	}
	if len(req) == 0 {
		return nil, nil
	}
	return sess.Read(ctx, req...)
}

func good(dv *ua.DataValue) bool {
	return dv != nil && dv.Status == ua.StatusOK
}
