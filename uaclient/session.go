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

package uaclient

import (
	"context"
	"errors"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

var errEmptyResponse = errors.New("empty response")

// session adapts *opcua.Client to types.Session.
type session struct {
	client *opcua.Client
}

func (s *session) Browse(ctx context.Context, desc *ua.BrowseDescription, maxReferences uint32) (*ua.BrowseResult, error) {
	resp, err := s.client.Browse(ctx, &ua.BrowseRequest{
		View:                          &ua.ViewDescription{ViewID: ua.NewTwoByteNodeID(0)},
		RequestedMaxReferencesPerNode: maxReferences,
		NodesToBrowse:                 []*ua.BrowseDescription{desc},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errEmptyResponse
	}
	return resp.Results[0], nil
}

func (s *session) BrowseNext(ctx context.Context, continuationPoint []byte, release bool) (*ua.BrowseResult, error) {
	resp, err := s.client.BrowseNext(ctx, &ua.BrowseNextRequest{
		ReleaseContinuationPoints: release,
		ContinuationPoints:        [][]byte{continuationPoint},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errEmptyResponse
	}
	return resp.Results[0], nil
}

func (s *session) Read(ctx context.Context, nodes ...*ua.ReadValueID) ([]*ua.DataValue, error) {
	resp, err := s.client.Read(ctx, &ua.ReadRequest{
		NodesToRead:        nodes,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(nodes) {
		return nil, errEmptyResponse
	}
	return resp.Results, nil
}

func (s *session) Write(ctx context.Context, values ...*ua.WriteValue) ([]ua.StatusCode, error) {
	resp, err := s.client.Write(ctx, &ua.WriteRequest{NodesToWrite: values})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (s *session) Call(ctx context.Context, req *ua.CallMethodRequest) (*ua.CallMethodResult, error) {
	return s.client.Call(ctx, req)
}

func (s *session) HistoryReadRaw(ctx context.Context, node *ua.HistoryReadValueID, details *ua.ReadRawModifiedDetails) (*ua.HistoryReadResult, error) {
	resp, err := s.client.HistoryReadRawModified(ctx, []*ua.HistoryReadValueID{node}, details)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errEmptyResponse
	}
	return resp.Results[0], nil
}

func (s *session) Subscribe(ctx context.Context, params *opcua.SubscriptionParameters, notifyCh chan<- *opcua.PublishNotificationData) (types.Subscription, error) {
	sub, err := s.client.Subscribe(ctx, params, notifyCh)
	if err != nil {
		return nil, err
	}
	return &subscription{sub: sub}, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// subscription adapts *opcua.Subscription to types.Subscription.
type subscription struct {
	sub *opcua.Subscription
}

func (s *subscription) ID() uint32 {
	return s.sub.SubscriptionID
}

func (s *subscription) Monitor(ctx context.Context, ts ua.TimestampsToReturn, items ...*ua.MonitoredItemCreateRequest) (*ua.CreateMonitoredItemsResponse, error) {
	return s.sub.Monitor(ctx, ts, items...)
}

func (s *subscription) Cancel(ctx context.Context) error {
	return s.sub.Cancel(ctx)
}
