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
	"fmt"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/utils/cast"
)

// Fact is a decoded attribute value.
type Fact struct {
	Kind  Kind        `json:"kind"`
	Value interface{} `json:"value"`
}

// LocalizedText 本地化文本，缺失的字段以 "None" 填充
type LocalizedText struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// Decode returns the structured form of a raw attribute value.
// It returns nil when the kind has no special decoding and the raw value should be used as-is.
func Decode(kind Kind, raw interface{}) *Fact {
	var v interface{}
	switch kind {
	case Description, DisplayName:
		v = DecodeLocalizedText(raw)
	case WriteMask, UserWriteMask:
		v = WriteMaskFlags.Decode(mask(raw))
	case ValueRank:
		v = ValueRankString(cast.ToInt64(raw))
	case DataType:
		v = DataTypeName(raw)
	case NodeClass:
		v = NodeClassName(raw)
	case EventNotifier:
		v = EventNotifierFlags.Decode(mask(raw))
	case MinimumSamplingInterval:
		v = SamplingInterval(raw)
	case AccessLevel, UserAccessLevel, AccessLevelEx:
		v = AccessLevelFlags.Decode(mask(raw))
	case AccessRestrictions:
		v = AccessRestrictionFlags.Decode(mask(raw))
	default:
		return nil
	}
	return &Fact{Kind: kind, Value: v}
}

func mask(raw interface{}) uint64 {
	if raw == nil {
		return 0
	}
	v, err := cast.ToUint64E(raw)
	if err != nil {
		return 0
	}
	return v
}

// DecodeLocalizedText never returns empty fields: a missing locale or text is "None".
func DecodeLocalizedText(raw interface{}) LocalizedText {
	lt := LocalizedText{Locale: None, Text: None}
	switch v := raw.(type) {
	case *ua.LocalizedText:
		if v != nil {
			if v.Locale != "" {
				lt.Locale = v.Locale
			}
			if v.Text != "" {
				lt.Text = v.Text
			}
		}
	case ua.LocalizedText:
		return DecodeLocalizedText(&v)
	case map[string]interface{}:
		if s, ok := v["locale"].(string); ok && s != "" {
			lt.Locale = s
		}
		if s, ok := v["text"].(string); ok && s != "" {
			lt.Text = s
		}
	case string:
		if v != "" {
			lt.Text = v
		}
	}
	return lt
}

// ValueRankString describes a value rank.
func ValueRankString(rank int64) string {
	switch {
	case rank > 1:
		return fmt.Sprintf("Array (%d dimensions)", rank)
	case rank == 1:
		return "Array (1 dimension)"
	case rank == 0:
		return "Array (>=1 dimensions)"
	case rank == -1:
		return "Scalar"
	case rank == -2:
		return "Scalar or Array (>=1 dimensions)"
	case rank == -3:
		return "Scalar or Array (1 dimension)"
	default:
		return ""
	}
}

// ArrayType classifies a value rank as "Scalar", "Array" or "Matrix".
// It returns "" for ranks below -3.
func ArrayType(rank int64) string {
	switch {
	case rank == 1 || rank == -2 || rank == -3:
		return "Array"
	case rank >= 0:
		return "Matrix"
	case rank == -1:
		return "Scalar"
	default:
		return ""
	}
}

// SamplingInterval maps the two sentinel intervals to their names.
func SamplingInterval(raw interface{}) interface{} {
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return raw
	}
	switch f {
	case -1:
		return "indeterminate"
	case 0:
		return "continuously"
	}
	return raw
}

// Simplify turns protocol structures into JSON friendly values.
func Simplify(v interface{}) interface{} {
	switch x := v.(type) {
	case *ua.Variant:
		if x == nil {
			return nil
		}
		return Simplify(x.Value())
	case *ua.NodeID:
		if x == nil {
			return nil
		}
		return x.String()
	case *ua.ExpandedNodeID:
		if x == nil || x.NodeID == nil {
			return nil
		}
		return x.NodeID.String()
	case *ua.LocalizedText:
		return DecodeLocalizedText(x)
	case *ua.QualifiedName:
		if x == nil {
			return nil
		}
		return map[string]interface{}{"namespaceIndex": x.NamespaceIndex, "name": x.Name}
	case ua.StatusCode:
		return types.StatusName(x)
	case []*ua.Variant:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = Simplify(item)
		}
		return out
	case *ua.ExtensionObject:
		if x == nil {
			return nil
		}
		return x.Value
	}
	return v
}
