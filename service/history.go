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

const (
	MsgEndWithoutStart     = `You cannot set the query parameter "end" without a "start".`
	MsgStartNotDate        = `"start" should be a date!`
	MsgEndNotDate          = `"end" should be a date!`
	MsgHistoryNotAllowed   = "History read is not allowed for this Node."
	maxHistoryContinuation = 1000
)

// HistoryValue is one historical sample.
type HistoryValue struct {
	Value           interface{} `json:"value"`
	SourceTimestamp time.Time   `json:"sourceTimestamp"`
	ServerTimestamp time.Time   `json:"serverTimestamp"`
}

// History reads the raw history of the node between start and end.
// end defaults to now; end without start is rejected.
func (s *Service) History(ctx context.Context, credentials *types.Credentials, nodeID, start, end string) ([]HistoryValue, error) {
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	from, to, err := historyRange(start, end, time.Now())
	if err != nil {
		return nil, err
	}
	var values []HistoryValue
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		if err := historyAllowed(ctx, sess, nid); err != nil {
			return err
		}
		values, err = readHistory(ctx, sess, nid, from, to)
		return err
	})
	return values, err
}

func historyRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	var from, to time.Time
	if start == "" {
		if end != "" {
			return from, to, types.NewValidationError(MsgEndWithoutStart)
		}
		return from, to, types.NewValidationError(MsgStartNotDate)
	}
	from, err := cast.ToTimeE(start)
	if err != nil {
		return from, to, types.NewValidationError(MsgStartNotDate)
	}
	to = now
	if end != "" {
		if to, err = cast.ToTimeE(end); err != nil {
			return from, to, types.NewValidationError(MsgEndNotDate)
		}
	}
	return from, to, nil
}

// historyAllowed 检查 UserAccessLevel 和 EventNotifier 的 HistoryRead 位，读取失败的属性不参与判断
func historyAllowed(ctx context.Context, sess types.Session, nid *ua.NodeID) error {
	values, err := sess.Read(ctx,
		&ua.ReadValueID{NodeID: nid, AttributeID: attribute.UserAccessLevel.ID()},
		&ua.ReadValueID{NodeID: nid, AttributeID: attribute.EventNotifier.ID()},
	)
	if err != nil {
		return err
	}
	tables := []attribute.FlagTable{attribute.AccessLevelFlags, attribute.EventNotifierFlags}
	for i, dv := range values {
		if i >= len(tables) || !good(dv) {
			continue
		}
		if !tables[i].Decode(cast64(attribute.RawValue(dv))).Has("HistoryRead") {
			return &types.ForbiddenError{Msg: MsgHistoryNotAllowed}
		}
	}
	return nil
}

func readHistory(ctx context.Context, sess types.Session, nid *ua.NodeID, from, to time.Time) ([]HistoryValue, error) {
	details := &ua.ReadRawModifiedDetails{StartTime: from, EndTime: to}
	node := &ua.HistoryReadValueID{NodeID: nid}
	values := make([]HistoryValue, 0)
	for i := 0; i < maxHistoryContinuation; i++ {
		res, err := sess.HistoryReadRaw(ctx, node, details)
		if err != nil {
			return nil, err
		}
		if err := types.NewStatusError("history read "+nid.String(), res.StatusCode); err != nil {
			return nil, err
		}
		if res.HistoryData != nil {
			if data, ok := res.HistoryData.Value.(*ua.HistoryData); ok {
				for _, dv := range data.DataValues {
					if dv == nil {
						continue
					}
					values = append(values, HistoryValue{
						Value:           attribute.Simplify(attribute.RawValue(dv)),
						SourceTimestamp: dv.SourceTimestamp,
						ServerTimestamp: dv.ServerTimestamp,
					})
				}
			}
		}
		if len(res.ContinuationPoint) == 0 {
			break
		}
		node = &ua.HistoryReadValueID{NodeID: nid, ContinuationPoint: res.ContinuationPoint}
	}
	return values, nil
}
