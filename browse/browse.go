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

// Package browse drains a paged browse into one ordered reference list.
//
// 续浏览点绑定在会话上，会话在请求结束时关闭，所以分页必须在一次调用内完成，
// 续浏览点不会返回给调用方，也无法跨请求恢复。
package browse

import (
	"context"

	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
)

// NodeReference is one reference returned by a browse.
type NodeReference struct {
	NodeID          string                  `json:"nodeId"`
	ReferenceTypeID string                  `json:"referenceTypeId"`
	IsForward       bool                    `json:"isForward"`
	NodeClass       string                  `json:"nodeClass"`
	BrowseName      string                  `json:"browseName"`
	DisplayName     attribute.LocalizedText `json:"displayName"`
	TypeDefinition  string                  `json:"typeDefinition,omitempty"`
}

// Result of All. Status is not good when the initial browse was rejected,
// in which case References is empty.
type Result struct {
	Status     ua.StatusCode
	References []NodeReference
}

// Options of a browse.
type Options struct {
	Direction       ua.BrowseDirection
	ReferenceTypeID *ua.NodeID
	IncludeSubtypes bool
	NodeClassMask   uint32
	Logger          types.Logger
}

// Option modifies Options.
type Option func(*Options)

// WithDirection sets the browse direction, forward by default.
func WithDirection(direction ua.BrowseDirection) Option {
	return func(o *Options) {
		o.Direction = direction
	}
}

// WithReferenceType restricts the browse to one reference type and its subtypes.
func WithReferenceType(referenceTypeID *ua.NodeID) Option {
	return func(o *Options) {
		o.ReferenceTypeID = referenceTypeID
	}
}

// WithLogger logs failures to release a continuation point.
func WithLogger(logger types.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithNodeClassMask restricts targets to the given node classes.
func WithNodeClassMask(mask ua.NodeClass) Option {
	return func(o *Options) {
		o.NodeClassMask = uint32(mask)
	}
}

func defaultOptions() Options {
	return Options{
		Direction:       ua.BrowseDirectionForward,
		ReferenceTypeID: ua.NewNumericNodeID(0, id.References),
		IncludeSubtypes: true,
	}
}

// All browses nodeID and follows continuation points until the server has no more
// references or maxReferences is reached. maxReferences=0 means no limit.
// A bad status on the initial browse is returned in Result.Status. A bad status on a
// continuation fails the whole call and the references gathered so far are discarded.
func All(ctx context.Context, sess types.Session, nodeID *ua.NodeID, maxReferences uint32, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	desc := &ua.BrowseDescription{
		NodeID:          nodeID,
		BrowseDirection: o.Direction,
		ReferenceTypeID: o.ReferenceTypeID,
		IncludeSubtypes: o.IncludeSubtypes,
		NodeClassMask:   o.NodeClassMask,
		ResultMask:      uint32(ua.BrowseResultMaskAll),
	}
	res, err := sess.Browse(ctx, desc, maxReferences)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != ua.StatusOK {
		return &Result{Status: res.StatusCode}, nil
	}

	refs := append([]*ua.ReferenceDescription(nil), res.References...)
	cp := res.ContinuationPoint
	for len(cp) > 0 && (maxReferences == 0 || uint32(len(refs)) < maxReferences) {
		next, err := sess.BrowseNext(ctx, cp, false)
		if err != nil {
			return nil, err
		}
		if next.StatusCode != ua.StatusOK {
			return nil, &types.StatusError{Op: "browse next", Code: next.StatusCode}
		}
		refs = append(refs, next.References...)
		cp = next.ContinuationPoint
	}
	if len(cp) > 0 {
		// limit reached with references left on the server
		if _, err := sess.BrowseNext(ctx, cp, true); err != nil && o.Logger != nil {
			o.Logger.Printf("release continuation point error: %v", err)
		}
	}
	if maxReferences > 0 && uint32(len(refs)) > maxReferences {
		refs = refs[:maxReferences]
	}

	out := make([]NodeReference, 0, len(refs))
	for _, ref := range refs {
		out = append(out, FromDescription(ref))
	}
	return &Result{Status: ua.StatusOK, References: out}, nil
}

// FromDescription converts a protocol reference description.
func FromDescription(ref *ua.ReferenceDescription) NodeReference {
	r := NodeReference{
		IsForward:   ref.IsForward,
		NodeClass:   attribute.NodeClassName(ref.NodeClass),
		DisplayName: attribute.DecodeLocalizedText(ref.DisplayName),
	}
	if ref.NodeID != nil && ref.NodeID.NodeID != nil {
		r.NodeID = ref.NodeID.NodeID.String()
	}
	if ref.ReferenceTypeID != nil {
		r.ReferenceTypeID = ref.ReferenceTypeID.String()
	}
	if ref.BrowseName != nil {
		r.BrowseName = ref.BrowseName.Name
	}
	if ref.TypeDefinition != nil && ref.TypeDefinition.NodeID != nil {
		r.TypeDefinition = ref.TypeDefinition.NodeID.String()
	}
	return r
}
