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

package cast

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ToInt64 converts an interface{} to int64.
// It returns 0 if conversion fails.
func ToInt64(value interface{}) int64 {
	v, _ := ToInt64E(value)
	return v
}

// ToInt64E converts an interface{} to int64 with error handling.
func ToInt64E(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("unable to cast %v of type %T to int64: overflow", value, value)
		}
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unable to cast %v of type %T to int64", value, value)
	}
}

// ToUint64E converts an interface{} to uint64. Negative values are rejected.
// 用于位掩码属性
func ToUint64E(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case string:
		return strconv.ParseUint(v, 10, 64)
	}
	i, err := ToInt64E(value)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("unable to cast negative %v to uint64", value)
	}
	return uint64(i), nil
}

// ToFloat64E converts an interface{} to float64 with error handling.
func ToFloat64E(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	}
	i, err := ToInt64E(value)
	if err != nil {
		return 0, fmt.Errorf("unable to cast %v of type %T to float64", value, value)
	}
	return float64(i), nil
}

// ToBoolE converts an interface{} to bool with error handling.
func ToBoolE(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	}
	i, err := ToInt64E(value)
	if err != nil {
		return false, fmt.Errorf("unable to cast %v of type %T to bool", value, value)
	}
	return i != 0, nil
}

// ToString converts an interface{} to string.
// It returns empty string if conversion fails.
func ToString(input interface{}) string {
	v, _ := ToStringE(input)
	return v
}

// ToStringE converts an interface{} to string with error handling.
func ToStringE(input interface{}) (string, error) {
	switch v := input.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int, int8, int16, int32, int64:
		i, _ := ToInt64E(v)
		return strconv.FormatInt(i, 10), nil
	case uint, uint8, uint16, uint32, uint64:
		u, _ := ToUint64E(v)
		return strconv.FormatUint(u, 10), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case error:
		return v.Error(), nil
	default:
		b, err := json.Marshal(input)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// ToTimeE parses RFC 3339 strings, plain dates and unix millisecond timestamps.
func ToTimeE(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		return time.Time{}, fmt.Errorf("unable to parse %q as time", v)
	}
	ms, err := ToInt64E(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to cast %v of type %T to time", value, value)
	}
	return time.UnixMilli(ms), nil
}
