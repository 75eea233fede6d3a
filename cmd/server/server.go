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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/config"
	"github.com/rulego/opcua-rest/config/logger"
	"github.com/rulego/opcua-rest/endpoint"
	"github.com/rulego/opcua-rest/endpoint/rest"
	"github.com/rulego/opcua-rest/health"
	"github.com/rulego/opcua-rest/internal/controller"
	"github.com/rulego/opcua-rest/internal/router"
	"github.com/rulego/opcua-rest/service"
	"github.com/rulego/opcua-rest/session"
	"github.com/rulego/opcua-rest/subscription"
	"github.com/rulego/opcua-rest/uaclient"
)

const (
	version = "1.0.0"
)

var (
	//是否是查询版本
	ver bool
	//配置文件
	configFile string
)

func init() {
	flag.StringVar(&configFile, "c", "", "配置文件")
	flag.BoolVar(&ver, "v", false, "打印版本")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("OPC UA REST Server v%s", version)
		os.Exit(0)
	}

	c, err := config.Load(configFile)
	if err != nil {
		log.Fatal("error:", err)
	}
	config.Set(c)
	logger.Set(logger.New(c.LogFile))

	logger.Logger.Printf("use config file=%s, opcua endpoint=%s", configFile, c.OpcUa.Endpoint)

	gatewayConfig := types.NewConfig(c.Options(logger.Logger)...)
	connector := uaclient.NewConnector(c.ClientConfig(), gatewayConfig)
	scope := session.NewScope(connector, gatewayConfig)
	multiplexer := subscription.NewMultiplexer(scope, gatewayConfig, c.SubscriptionParameters())

	var checker *health.Checker
	if c.HealthCheck != "-" {
		checker = health.New(connector, c.OpcUa.Endpoint, gatewayConfig, c.HealthCheck)
		if err := checker.Start(); err != nil {
			log.Fatal("health check error:", err)
		}
	}

	ctl := controller.New(service.New(scope, gatewayConfig), multiplexer, checker, gatewayConfig)
	//创建rest服务
	restEndpoint := router.NewRestServe(c, ctl, gatewayConfig)
	restEndpoint.OnEvent = func(eventName string, params ...interface{}) {
		switch eventName {
		case endpoint.EventInitServer:
			wsEndpoint := router.NewWebsocketServe(ctl, params[0].(*rest.Rest), gatewayConfig)
			if err := wsEndpoint.Start(); err != nil {
				log.Fatal("error:", err)
			}
		case endpoint.EventCompletedServer:
			logger.Logger.Printf("rest server stopped: %v", params[0])
		}
	}
	//启动服务
	if err := restEndpoint.Start(); err != nil {
		log.Fatal("error:", err)
	}

	sigs := make(chan os.Signal, 1)
	// 监听系统信号，包括中断信号和终止信号
	signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-sigs
	multiplexer.CloseAll()
	if checker != nil {
		checker.Stop()
	}
	_ = restEndpoint.Close()
	logger.Logger.Println("stopped server")
}
