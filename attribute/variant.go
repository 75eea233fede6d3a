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
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/utils/cast"
)

// 数组为空时用于构造切片的元素类型
var elemTypes = map[ua.TypeID]reflect.Type{
	ua.TypeIDBoolean:        reflect.TypeOf(false),
	ua.TypeIDSByte:          reflect.TypeOf(int8(0)),
	ua.TypeIDByte:           reflect.TypeOf(uint8(0)),
	ua.TypeIDInt16:          reflect.TypeOf(int16(0)),
	ua.TypeIDUint16:         reflect.TypeOf(uint16(0)),
	ua.TypeIDInt32:          reflect.TypeOf(int32(0)),
	ua.TypeIDUint32:         reflect.TypeOf(uint32(0)),
	ua.TypeIDInt64:          reflect.TypeOf(int64(0)),
	ua.TypeIDUint64:         reflect.TypeOf(uint64(0)),
	ua.TypeIDFloat:          reflect.TypeOf(float32(0)),
	ua.TypeIDDouble:         reflect.TypeOf(float64(0)),
	ua.TypeIDString:         reflect.TypeOf(""),
	ua.TypeIDDateTime:       reflect.TypeOf(time.Time{}),
	ua.TypeIDGUID:           reflect.TypeOf(&ua.GUID{}),
	ua.TypeIDByteString:     reflect.TypeOf([]byte(nil)),
	ua.TypeIDNodeID:         reflect.TypeOf(&ua.NodeID{}),
	ua.TypeIDExpandedNodeID: reflect.TypeOf(&ua.ExpandedNodeID{}),
	ua.TypeIDStatusCode:     reflect.TypeOf(ua.StatusCode(0)),
	ua.TypeIDQualifiedName:  reflect.TypeOf(&ua.QualifiedName{}),
	ua.TypeIDLocalizedText:  reflect.TypeOf(&ua.LocalizedText{}),
}

// ResolveType accepts a builtin data type name ("Double") or its numeric identifier (11).
func ResolveType(dataType interface{}) (ua.TypeID, error) {
	if name, ok := dataType.(string); ok {
		if t, ok := BuiltinType(name); ok {
			return t, nil
		}
	}
	n, err := cast.ToUint64E(dataType)
	if err == nil && n > 0 {
		if _, ok := elemTypes[ua.TypeID(n)]; ok {
			return ua.TypeID(n), nil
		}
	}
	return 0, types.NewValidationError("data type %v is not supported", dataType)
}

// NewVariant builds a variant of the given builtin data type from a JSON value.
// Arrays (nested for matrices) become typed slices.
func NewVariant(dataType interface{}, raw interface{}) (*ua.Variant, error) {
	t, err := ResolveType(dataType)
	if err != nil {
		return nil, err
	}
	v, err := convert(t, raw)
	if err != nil {
		return nil, err
	}
	variant, err := ua.NewVariant(v)
	if err != nil {
		return nil, types.NewValidationError("%v", err)
	}
	return variant, nil
}

func convert(t ua.TypeID, raw interface{}) (interface{}, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return scalar(t, raw)
	}
	elemType := elemTypes[t]
	values := make([]reflect.Value, 0, len(items))
	for _, item := range items {
		v, err := convert(t, item)
		if err != nil {
			return nil, err
		}
		rv := reflect.ValueOf(v)
		if len(values) > 0 && rv.Type() != values[0].Type() {
			return nil, types.NewValidationError("array elements have different dimensions")
		}
		values = append(values, rv)
	}
	if len(values) > 0 {
		elemType = values[0].Type()
	}
	out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(values))
	return reflect.Append(out, values...).Interface(), nil
}

func scalar(t ua.TypeID, raw interface{}) (interface{}, error) {
	mismatch := func() error {
		return types.NewValidationError("value %v is not of type %s", raw, dataTypeNames[uint32(t)])
	}
	switch t {
	case ua.TypeIDBoolean:
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return v, nil
	case ua.TypeIDSByte, ua.TypeIDInt16, ua.TypeIDInt32, ua.TypeIDInt64:
		v, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, mismatch()
		}
		return signed(t, v)
	case ua.TypeIDByte, ua.TypeIDUint16, ua.TypeIDUint32, ua.TypeIDUint64:
		v, err := cast.ToUint64E(raw)
		if err != nil {
			return nil, mismatch()
		}
		return unsigned(t, v)
	case ua.TypeIDFloat:
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, mismatch()
		}
		if math.Abs(v) > math.MaxFloat32 {
			return nil, types.NewValidationError("value %v is out of range for Float", raw)
		}
		return float32(v), nil
	case ua.TypeIDDouble:
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, mismatch()
		}
		return v, nil
	case ua.TypeIDString:
		v, err := cast.ToStringE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return v, nil
	case ua.TypeIDDateTime:
		v, err := cast.ToTimeE(raw)
		if err != nil {
			return nil, mismatch()
		}
		return v, nil
	case ua.TypeIDGUID:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		return ua.NewGUID(s), nil
	case ua.TypeIDByteString:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, types.NewValidationError("ByteString must be base64: %v", err)
		}
		return b, nil
	case ua.TypeIDNodeID, ua.TypeIDExpandedNodeID:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		n, err := ua.ParseNodeID(s)
		if err != nil {
			return nil, mismatch()
		}
		if t == ua.TypeIDExpandedNodeID {
			return ua.NewExpandedNodeID(n, "", 0), nil
		}
		return n, nil
	case ua.TypeIDStatusCode:
		v, err := cast.ToUint64E(raw)
		if err != nil || v > math.MaxUint32 {
			return nil, mismatch()
		}
		return ua.StatusCode(v), nil
	case ua.TypeIDQualifiedName:
		return qualifiedName(raw)
	case ua.TypeIDLocalizedText:
		switch v := raw.(type) {
		case string:
			return ua.NewLocalizedText(v), nil
		case map[string]interface{}:
			text, _ := v["text"].(string)
			if locale, _ := v["locale"].(string); locale != "" {
				return ua.NewLocalizedTextWithLocale(text, locale), nil
			}
			return ua.NewLocalizedText(text), nil
		}
		return nil, mismatch()
	}
	return nil, types.NewValidationError("data type %s is not supported", dataTypeNames[uint32(t)])
}

func qualifiedName(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case string:
		return &ua.QualifiedName{Name: v}, nil
	case map[string]interface{}:
		name, _ := v["name"].(string)
		ns, err := cast.ToUint64E(v["namespaceIndex"])
		if v["namespaceIndex"] != nil && (err != nil || ns > math.MaxUint16) {
			return nil, types.NewValidationError("invalid namespaceIndex %v", v["namespaceIndex"])
		}
		return &ua.QualifiedName{NamespaceIndex: uint16(ns), Name: name}, nil
	}
	return nil, types.NewValidationError("value %v is not of type QualifiedName", raw)
}

func signed(t ua.TypeID, v int64) (interface{}, error) {
	outOfRange := fmt.Errorf("value %d is out of range for %s", v, dataTypeNames[uint32(t)])
	switch t {
	case ua.TypeIDSByte:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, types.NewValidationError("%v", outOfRange)
		}
		return int8(v), nil
	case ua.TypeIDInt16:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, types.NewValidationError("%v", outOfRange)
		}
		return int16(v), nil
	case ua.TypeIDInt32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, types.NewValidationError("%v", outOfRange)
		}
		return int32(v), nil
	}
	return v, nil
}

func unsigned(t ua.TypeID, v uint64) (interface{}, error) {
	outOfRange := fmt.Errorf("value %d is out of range for %s", v, dataTypeNames[uint32(t)])
	switch t {
	case ua.TypeIDByte:
		if v > math.MaxUint8 {
			return nil, types.NewValidationError("%v", outOfRange)
		}
		return uint8(v), nil
	case ua.TypeIDUint16:
		if v > math.MaxUint16 {
			return nil, types.NewValidationError("%v", outOfRange)
		}
		return uint16(v), nil
	case ua.TypeIDUint32:
		if v > math.MaxUint32 {
			return nil, types.NewValidationError("%v", outOfRange)
		}
		return uint32(v), nil
	}
	return v, nil
}
