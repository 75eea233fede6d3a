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

// Package runtime 运行时堆栈工具，用于 panic 恢复时记录日志
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

const defaultDepth = 20

// Stack returns the call stack of the caller's caller, one "function file:line" per line.
func Stack() string {
	return stackDepth(1, defaultDepth)
}

// stackDepth skips skip frames above the caller and returns at most depth frames.
func stackDepth(skip, depth int) string {
	pc := make([]uintptr, depth)
	n := runtime.Callers(skip+3, pc)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pc[:n])
	var build strings.Builder
	for {
		frame, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s %s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return build.String()
}
