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
	"encoding/json"
)

// None 空标志集合的显示值
const None = "None"

// Flag names one bit of a bit-mask attribute.
type Flag struct {
	Bit  uint
	Name string
}

// FlagTable is an ordered list of named bits.
type FlagTable []Flag

var (
	EventNotifierFlags = FlagTable{
		{0, "SubscribeToEvents"},
		{2, "HistoryRead"},
		{3, "HistoryWrite"},
	}

	// AccessLevelFlags also decodes UserAccessLevel and AccessLevelEx.
	AccessLevelFlags = FlagTable{
		{0, "CurrentRead"},
		{1, "CurrentWrite"},
		{2, "HistoryRead"},
		{3, "HistoryWrite"},
		{4, "SemanticChange"},
		{5, "StatusWrite"},
		{6, "TimestampWrite"},
		{8, "NonatomicRead"},
		{9, "NonatomicWrite"},
		{10, "WriteFullArrayOnly"},
	}

	AccessRestrictionFlags = FlagTable{
		{0, "SigningRequired"},
		{1, "EncryptionRequired"},
		{2, "SessionRequired"},
	}

	// WriteMaskFlags also decodes UserWriteMask.
	WriteMaskFlags = FlagTable{
		{0, "AccessLevel"},
		{1, "ArrayDimensions"},
		{2, "BrowseName"},
		{3, "ContainsNoLoops"},
		{4, "DataType"},
		{5, "Description"},
		{6, "DisplayName"},
		{7, "EventNotifier"},
		{8, "Executable"},
		{9, "Historizing"},
		{10, "InverseName"},
		{11, "IsAbstract"},
		{12, "MinimumSamplingInterval"},
		{13, "NodeClass"},
		{14, "NodeId"},
		{15, "Symmetric"},
		{16, "UserAccessLevel"},
		{17, "UserExecutable"},
		{18, "UserWriteMask"},
		{19, "ValueRank"},
		{20, "WriteMask"},
		{21, "ValueForVariableType"},
		{22, "DataTypeDefinition"},
		{23, "RolePermissions"},
		{24, "AccessRestrictions"},
		{25, "AccessLevelEx"},
	}
)

// Decode returns the names of the bits set in mask, in table order.
// Bits without a name are ignored.
func (t FlagTable) Decode(mask uint64) FlagSet {
	set := FlagSet{}
	for _, f := range t {
		if mask&(1<<f.Bit) != 0 {
			set = append(set, f.Name)
		}
	}
	return set
}

// Mask returns the bit of the named flag.
func (t FlagTable) Mask(name string) (uint64, bool) {
	for _, f := range t {
		if f.Name == name {
			return 1 << f.Bit, true
		}
	}
	return 0, false
}

// FlagSet is a decoded bit-mask. An empty set renders as "None".
type FlagSet []string

// Has reports whether the set contains name.
func (s FlagSet) Has(name string) bool {
	for _, v := range s {
		if v == name {
			return true
		}
	}
	return false
}

func (s FlagSet) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return json.Marshal(None)
	}
	return json.Marshal([]string(s))
}
