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
	"strconv"
	"strings"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
)

// Kind 节点属性类型，取值与属性标识一致
// Kind identifies a node attribute. Its numeric value is the attribute identifier.
type Kind uint32

const (
	NodeID Kind = iota + 1
	NodeClass
	BrowseName
	DisplayName
	Description
	WriteMask
	UserWriteMask
	IsAbstract
	Symmetric
	InverseName
	ContainsNoLoops
	EventNotifier
	Value
	DataType
	ValueRank
	ArrayDimensions
	AccessLevel
	UserAccessLevel
	MinimumSamplingInterval
	Historizing
	Executable
	UserExecutable
	DataTypeDefinition
	RolePermissions
	UserRolePermissions
	AccessRestrictions
	AccessLevelEx
)

var kindNames = [...]string{
	"",
	"NodeId",
	"NodeClass",
	"BrowseName",
	"DisplayName",
	"Description",
	"WriteMask",
	"UserWriteMask",
	"IsAbstract",
	"Symmetric",
	"InverseName",
	"ContainsNoLoops",
	"EventNotifier",
	"Value",
	"DataType",
	"ValueRank",
	"ArrayDimensions",
	"AccessLevel",
	"UserAccessLevel",
	"MinimumSamplingInterval",
	"Historizing",
	"Executable",
	"UserExecutable",
	"DataTypeDefinition",
	"RolePermissions",
	"UserRolePermissions",
	"AccessRestrictions",
	"AccessLevelEx",
}

// Kinds lists every attribute kind in identifier order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames)-1)
	for i := 1; i < len(kindNames); i++ {
		kinds = append(kinds, Kind(i))
	}
	return kinds
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "Kind(" + strconv.FormatUint(uint64(k), 10) + ")"
}

// Valid reports whether k is a known attribute kind.
func (k Kind) Valid() bool {
	return k >= NodeID && int(k) < len(kindNames)
}

// ID returns the attribute identifier used on the wire.
func (k Kind) ID() ua.AttributeID {
	return ua.AttributeID(k)
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MsgNotAnAttribute is the error text for an unknown attribute name or id.
const MsgNotAnAttribute = "This is not an attribute."

// ParseKind accepts an attribute name (case-sensitive, as in the address space model)
// or its numeric identifier.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		if k := Kind(n); k.Valid() {
			return k, nil
		}
		return 0, types.NewValidationError(MsgNotAnAttribute)
	}
	for i := 1; i < len(kindNames); i++ {
		if kindNames[i] == s {
			return Kind(i), nil
		}
	}
	return 0, types.NewValidationError(MsgNotAnAttribute)
}
