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

// Package logger 进程日志记录器，配置了日志文件时按大小滚动
package logger

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger = log.New(os.Stdout, "", log.LstdFlags)

func Set(logger *log.Logger) {
	Logger = logger
}

func Get() *log.Logger {
	return Logger
}

// New 创建日志记录器，logFile 为空时输出到标准输出
func New(logFile string) *log.Logger {
	return log.New(Writer(logFile), "", log.LstdFlags)
}

// Writer 返回日志输出目标
func Writer(logFile string) io.Writer {
	if logFile == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}
