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
	"strconv"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/browse"
)

const MsgNoSuchReference = "The ReferenceId refers to a reference that does not exist for this node."

// Reference is a browsed reference with the display name of its reference type.
type Reference struct {
	// Index 从 1 开始
	Index int
	browse.NodeReference
	ReferenceType string
}

// References lists the forward references of the node.
func (s *Service) References(ctx context.Context, credentials *types.Credentials, nodeID string) ([]Reference, error) {
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	var out []Reference
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		refs, err := s.browse(ctx, sess, nid, 0)
		if err != nil {
			return err
		}
		out, err = withTypeNames(ctx, sess, refs, 0)
		return err
	})
	return out, err
}

// Reference returns the index-th (1-based) reference of the node, browsing in both directions.
func (s *Service) Reference(ctx context.Context, credentials *types.Credentials, nodeID, index string) (*Reference, error) {
	i, err := strconv.Atoi(index)
	if err != nil || i < 1 {
		return nil, &types.NotFoundError{Msg: MsgNoSuchReference}
	}
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	var ref *Reference
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		refs, err := s.browse(ctx, sess, nid, 0, browse.WithDirection(ua.BrowseDirectionBoth))
		if err != nil {
			return err
		}
		if i > len(refs) {
			return &types.NotFoundError{Msg: MsgNoSuchReference}
		}
		named, err := withTypeNames(ctx, sess, refs[i-1:i], i-1)
		if err != nil {
			return err
		}
		ref = &named[0]
		return nil
	})
	return ref, err
}

// withTypeNames resolves each distinct reference type once. offset shifts the 1-based index.
func withTypeNames(ctx context.Context, sess types.Session, refs []browse.NodeReference, offset int) ([]Reference, error) {
	var typeIDs []string
	seen := make(map[string]int)
	for _, r := range refs {
		if _, ok := seen[r.ReferenceTypeID]; !ok && r.ReferenceTypeID != "" {
			seen[r.ReferenceTypeID] = len(typeIDs)
			typeIDs = append(typeIDs, r.ReferenceTypeID)
		}
	}
	values, err := readMany(ctx, sess, attribute.DisplayName.ID(), typeIDs...)
	if err != nil {
		return nil, err
	}
	out := make([]Reference, len(refs))
	for i, r := range refs {
		out[i] = Reference{Index: offset + i + 1, NodeReference: r}
		if j, ok := seen[r.ReferenceTypeID]; ok && j < len(values) && good(values[j]) {
			out[i].ReferenceType = attribute.DecodeLocalizedText(attribute.RawValue(values[j])).Text
		}
	}
	return out, nil
}
