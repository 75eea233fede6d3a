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
	"fmt"

	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/attribute"
	"github.com/rulego/opcua-rest/browse"
	"github.com/rulego/opcua-rest/utils/maps"
)

const (
	MsgNotAMethod     = "This is not a method!"
	InputArgumentsKey = "InputArguments"
	OutputArgsKey     = "OutputArguments"
	nodeClassMethod   = "Method"
	schemeHint        = `View the link of the "Method" URI to get the scheme.`
)

// MethodSummary is one method exposed by a node.
type MethodSummary struct {
	NodeID      string                  `json:"NodeId"`
	DisplayName attribute.LocalizedText `json:"DisplayName"`
	Description attribute.LocalizedText `json:"Description"`
}

// Argument describes one method argument.
type Argument struct {
	Name        string                  `json:"name"`
	DataType    string                  `json:"dataType"`
	ArrayType   string                  `json:"arrayType,omitempty"`
	Description attribute.LocalizedText `json:"description"`
	dataTypeID  *ua.NodeID
	valueRank   int32
}

// MethodScheme describes how to call a method.
type MethodScheme struct {
	MethodID    string
	BrowseName  string
	DisplayName attribute.LocalizedText
	Executable  bool
	// Arguments 键为 InputArguments / OutputArguments
	Arguments map[string][]Argument
}

// InputArgument is one argument of a call request body.
type InputArgument struct {
	Name      string      `mapstructure:"name"`
	ArrayType string      `mapstructure:"arrayType"`
	DataType  interface{} `mapstructure:"dataType"`
	Value     interface{} `mapstructure:"value"`
}

// DecodeInputArguments decodes a JSON array body into input arguments.
func DecodeInputArguments(body interface{}) ([]InputArgument, error) {
	if body == nil {
		return nil, types.NewInputError("Input error: The request body mustn't be empty!")
	}
	var inputs []InputArgument
	if err := maps.Map2Struct(body, &inputs); err != nil {
		return nil, types.NewInputError("Input error: %v", err)
	}
	return inputs, nil
}

// Methods lists the forward method references of the node.
func (s *Service) Methods(ctx context.Context, credentials *types.Credentials, nodeID string) ([]MethodSummary, error) {
	nid, err := ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}
	var out []MethodSummary
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		refs, err := s.browse(ctx, sess, nid, 0)
		if err != nil {
			return err
		}
		var methods []browse.NodeReference
		var ids []string
		for _, r := range refs {
			if r.IsForward && r.NodeClass == nodeClassMethod {
				methods = append(methods, r)
				ids = append(ids, r.NodeID)
			}
		}
		descriptions, err := readMany(ctx, sess, attribute.Description.ID(), ids...)
		if err != nil {
			return err
		}
		out = make([]MethodSummary, len(methods))
		for i, m := range methods {
			out[i] = MethodSummary{NodeID: m.NodeID, DisplayName: m.DisplayName}
			var raw interface{}
			if i < len(descriptions) && good(descriptions[i]) {
				raw = attribute.RawValue(descriptions[i])
			}
			out[i].Description = attribute.DecodeLocalizedText(raw)
		}
		return nil
	})
	return out, err
}

// Method returns the argument scheme of a method.
func (s *Service) Method(ctx context.Context, credentials *types.Credentials, methodID string) (*MethodScheme, error) {
	mid, err := ParseNodeID(methodID)
	if err != nil {
		return nil, err
	}
	var scheme *MethodScheme
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		scheme, err = s.methodScheme(ctx, sess, mid)
		return err
	})
	return scheme, err
}

func (s *Service) methodScheme(ctx context.Context, sess types.Session, mid *ua.NodeID) (*MethodScheme, error) {
	values, err := sess.Read(ctx,
		&ua.ReadValueID{NodeID: mid, AttributeID: attribute.NodeClass.ID()},
		&ua.ReadValueID{NodeID: mid, AttributeID: attribute.BrowseName.ID()},
		&ua.ReadValueID{NodeID: mid, AttributeID: attribute.DisplayName.ID()},
		&ua.ReadValueID{NodeID: mid, AttributeID: attribute.UserExecutable.ID()},
	)
	if err != nil {
		return nil, err
	}
	if len(values) < 4 {
		return nil, &types.StatusError{Op: "read " + mid.String(), Code: ua.StatusBadNothingToDo}
	}
	if err := types.NewStatusError("read NodeClass", values[0].Status); err != nil {
		return nil, err
	}
	if attribute.NodeClassName(attribute.RawValue(values[0])) != nodeClassMethod {
		return nil, &types.NotFoundError{Msg: MsgNotAMethod}
	}
	scheme := &MethodScheme{
		MethodID:  mid.String(),
		Arguments: make(map[string][]Argument),
	}
	if q, ok := attribute.RawValue(values[1]).(*ua.QualifiedName); ok && q != nil {
		scheme.BrowseName = q.Name
	}
	scheme.DisplayName = attribute.DecodeLocalizedText(attribute.RawValue(values[2]))
	scheme.Executable, _ = attribute.RawValue(values[3]).(bool)

	props, err := s.browse(ctx, sess, mid, 0, browse.WithReferenceType(ua.NewNumericNodeID(0, id.HasProperty)))
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if p.BrowseName != InputArgumentsKey && p.BrowseName != OutputArgsKey {
			continue
		}
		pid, err := ua.ParseNodeID(p.NodeID)
		if err != nil {
			continue
		}
		dv, err := attribute.Read(ctx, sess, pid, attribute.Value)
		if err != nil {
			return nil, err
		}
		scheme.Arguments[p.BrowseName] = arguments(attribute.RawValue(dv))
	}
	return scheme, nil
}

func arguments(raw interface{}) []Argument {
	objects, _ := raw.([]*ua.ExtensionObject)
	out := make([]Argument, 0, len(objects))
	for _, o := range objects {
		if o == nil {
			continue
		}
		arg, ok := o.Value.(*ua.Argument)
		if !ok || arg == nil {
			continue
		}
		out = append(out, Argument{
			Name:        arg.Name,
			DataType:    attribute.DataTypeName(arg.DataType),
			ArrayType:   attribute.ArrayType(int64(arg.ValueRank)),
			Description: attribute.DecodeLocalizedText(arg.Description),
			dataTypeID:  arg.DataType,
			valueRank:   arg.ValueRank,
		})
	}
	return out
}

// Call validates the inputs against the method's InputArguments and calls the method on
// the object node. The output arguments are returned in order.
func (s *Service) Call(ctx context.Context, credentials *types.Credentials, objectID, methodID string, inputs []InputArgument) ([]interface{}, error) {
	if inputs == nil {
		return nil, types.NewInputError("Input error: The request body mustn't be empty!")
	}
	oid, err := ParseNodeID(objectID)
	if err != nil {
		return nil, err
	}
	mid, err := ParseNodeID(methodID)
	if err != nil {
		return nil, err
	}
	var outputs []interface{}
	err = s.scope.Do(ctx, credentials, func(ctx context.Context, sess types.Session) error {
		scheme, err := s.methodScheme(ctx, sess, mid)
		if err != nil {
			return err
		}
		variants, err := validateInputs(scheme.Arguments[InputArgumentsKey], inputs)
		if err != nil {
			return err
		}
		s.config.Debugf("call %s on %s with %d arguments", mid, oid, len(variants))
		res, err := sess.Call(ctx, &ua.CallMethodRequest{ObjectID: oid, MethodID: mid, InputArguments: variants})
		if err != nil {
			return err
		}
		if res.StatusCode == ua.StatusBadArgumentsMissing {
			return types.NewInputError("Input error: One or more input arguments are missing.")
		}
		if err := types.NewStatusError("call "+mid.String(), res.StatusCode); err != nil {
			return err
		}
		for _, code := range res.InputArgumentResults {
			if err := types.NewStatusError("call "+mid.String(), code); err != nil {
				return err
			}
		}
		outputs = make([]interface{}, len(res.OutputArguments))
		for i, v := range res.OutputArguments {
			outputs[i] = attribute.Simplify(v)
		}
		return nil
	})
	return outputs, err
}

// validateInputs 校验参数个数、名称顺序、数组类型（可选）和数据类型
func validateInputs(scheme []Argument, inputs []InputArgument) ([]*ua.Variant, error) {
	if len(inputs) != len(scheme) {
		return nil, types.NewInputError("Input error: An input argument is missing.")
	}
	variants := make([]*ua.Variant, len(inputs))
	for i, arg := range scheme {
		in := inputs[i]
		n := i + 1
		if arg.Name != in.Name {
			return nil, types.NewInputError("Input error: The name of the input argument %d is wrong or the arguments are not in the required order. %s", n, schemeHint)
		}
		if in.ArrayType != "" && in.ArrayType != attribute.ArrayType(int64(arg.valueRank)) {
			return nil, types.NewInputError("Input error: The arrayType you've provided for input argument %d is not matching the scheme. %s Remember that this attribute is optional!", n, schemeHint)
		}
		if !sameDataType(arg, in.DataType) {
			return nil, types.NewInputError("Input error: The dataType of the input argument %d is wrong. %s", n, schemeHint)
		}
		v, err := attribute.NewVariant(arg.DataType, in.Value)
		if err != nil {
			return nil, types.NewInputError("Input error: input argument %d: %v", n, err)
		}
		variants[i] = v
	}
	return variants, nil
}

func sameDataType(arg Argument, dataType interface{}) bool {
	if dataType == nil || arg.dataTypeID == nil {
		return false
	}
	if name, ok := dataType.(string); ok && name == arg.DataType {
		return true
	}
	return fmt.Sprint(dataType) == fmt.Sprint(arg.dataTypeID.IntID()) && arg.dataTypeID.Namespace() == 0
}
