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

package subscription

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter 通知过滤表达式，例如 `value > 50` 或 `SourceName == "Boiler"`
// 值订阅可用变量: value, dataType, status, sourceTimestamp
// 事件订阅可用变量: EventType, EventTypeName, SourceNode, SourceName, Time, Message
type Filter struct {
	source  string
	program *vm.Program
}

// NewFilter compiles a boolean expression.
func NewFilter(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &Filter{source: source, program: program}, nil
}

// Match evaluates the expression. A nil filter matches everything.
func (f *Filter) Match(env map[string]interface{}) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := vm.Run(f.program, env)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	return ok && result, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}
