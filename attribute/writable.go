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

package attribute

import (
	"context"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

// IsWritable reports whether the current user may write kind on the node.
// Value is checked against UserAccessLevel's CurrentWrite bit, every other kind against the
// bit named after it in UserWriteMask. A failed read means not writable.
func IsWritable(ctx context.Context, sess types.Session, nodeID *ua.NodeID, kind Kind) bool {
	source, table, flag := UserWriteMask, WriteMaskFlags, kind.String()
	if kind == Value {
		source, table, flag = UserAccessLevel, AccessLevelFlags, "CurrentWrite"
	}
	values, err := sess.Read(ctx, &ua.ReadValueID{NodeID: nodeID, AttributeID: source.ID()})
	if err != nil || len(values) == 0 || values[0] == nil || values[0].Status != ua.StatusOK {
		return false
	}
	dv := values[0]
	if dv.Value == nil {
		return false
	}
	return table.Decode(mask(dv.Value.Value())).Has(flag)
}

// Read reads one attribute and returns its value, or a *types.StatusError for a bad status.
func Read(ctx context.Context, sess types.Session, nodeID *ua.NodeID, kind Kind) (*ua.DataValue, error) {
	values, err := sess.Read(ctx, &ua.ReadValueID{NodeID: nodeID, AttributeID: kind.ID()})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || values[0] == nil {
		return nil, &types.StatusError{Op: "read " + kind.String(), Code: ua.StatusBadNothingToDo}
	}
	if err := types.NewStatusError("read "+kind.String(), values[0].Status); err != nil {
		return values[0], err
	}
	return values[0], nil
}

// RawValue unwraps the variant of a data value.
func RawValue(dv *ua.DataValue) interface{} {
	if dv == nil || dv.Value == nil {
		return nil
	}
	return dv.Value.Value()
}
