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
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/utils/cast"
)

// dataTypeNames 命名空间0中的数据类型标识到名称的映射
var dataTypeNames = map[uint32]string{
	1:     "Boolean",
	2:     "SByte",
	3:     "Byte",
	4:     "Int16",
	5:     "UInt16",
	6:     "Int32",
	7:     "UInt32",
	8:     "Int64",
	9:     "UInt64",
	10:    "Float",
	11:    "Double",
	12:    "String",
	13:    "DateTime",
	14:    "Guid",
	15:    "ByteString",
	16:    "XmlElement",
	17:    "NodeId",
	18:    "ExpandedNodeId",
	19:    "StatusCode",
	20:    "QualifiedName",
	21:    "LocalizedText",
	22:    "Structure",
	23:    "DataValue",
	24:    "BaseDataType",
	25:    "DiagnosticInfo",
	26:    "Number",
	27:    "Integer",
	28:    "UInteger",
	29:    "Enumeration",
	30:    "Image",
	256:   "IdType",
	257:   "NodeClass",
	288:   "IntegerId",
	289:   "Counter",
	290:   "Duration",
	291:   "NumericRange",
	292:   "Time",
	293:   "Date",
	294:   "UtcTime",
	295:   "LocaleId",
	296:   "Argument",
	852:   "ServerState",
	862:   "ServerStatusDataType",
	884:   "Range",
	887:   "EUInformation",
	7594:  "EnumValueType",
	12755: "OptionSet",
	12756: "Union",
}

var dataTypeIDs = func() map[string]uint32 {
	m := make(map[string]uint32, len(dataTypeNames))
	for k, v := range dataTypeNames {
		m[v] = k
	}
	return m
}()

// DataTypeName resolves a data type node id to its canonical name.
// Unknown ids are rendered in their string form.
func DataTypeName(raw interface{}) string {
	var n *ua.NodeID
	switch v := raw.(type) {
	case *ua.NodeID:
		n = v
	case ua.NodeID:
		n = &v
	case *ua.ExpandedNodeID:
		if v != nil {
			n = v.NodeID
		}
	case string:
		parsed, err := ua.ParseNodeID(v)
		if err != nil {
			return v
		}
		n = parsed
	}
	if n == nil {
		return ""
	}
	if n.Namespace() == 0 {
		if name, ok := dataTypeNames[n.IntID()]; ok {
			return name
		}
	}
	return n.String()
}

// DataTypeID returns the namespace 0 node id of a named data type.
func DataTypeID(name string) (*ua.NodeID, bool) {
	id, ok := dataTypeIDs[name]
	if !ok {
		return nil, false
	}
	return ua.NewNumericNodeID(0, id), true
}

// BuiltinType returns the variant type of a named builtin data type.
func BuiltinType(name string) (ua.TypeID, bool) {
	id, ok := dataTypeIDs[name]
	if !ok || id > 25 {
		return 0, false
	}
	return ua.TypeID(id), true
}

var nodeClassNames = map[uint32]string{
	0:   "Unspecified",
	1:   "Object",
	2:   "Variable",
	4:   "Method",
	8:   "ObjectType",
	16:  "VariableType",
	32:  "ReferenceType",
	64:  "DataType",
	128: "View",
}

// NodeClassName resolves a node class enum to its name.
func NodeClassName(raw interface{}) string {
	var v uint64
	switch c := raw.(type) {
	case ua.NodeClass:
		v = uint64(c)
	default:
		n, err := cast.ToUint64E(raw)
		if err != nil {
			return ""
		}
		v = n
	}
	return nodeClassNames[uint32(v)]
}
