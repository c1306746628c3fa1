// Copyright (c) StreamBridge Authors.
// Licensed under the MIT License.

/*
Package main 提供 streambridge 命令行程序入口。

# 概述

cmd/streambridge 把阻塞的字节源（文件、管道、标准输入）桥接为按需推送的
字节块流，提供 pipe、serve、version 三个子命令。程序支持 YAML 配置文件
加载、结构化日志（zap）、Prometheus 指标以及 OpenTelemetry 追踪。

# 核心类型

  - Server      — 流服务，组合 HTTP 管理器、流执行池与观察者
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - pipe：把文件或标准输入经 Publisher 写到标准输出，结束时输出统计日志
  - serve：GET /stream 升级为 WebSocket，每个连接独立打开文件并按二进制消息推送；
    GET /metrics 暴露 Prometheus 指标；GET /healthz 健康检查
  - 并发控制：流任务由有界 goroutine 池执行，池满时返回 503
  - 优雅关闭：信号触发 → 停止接收新连接 → 取消进行中的流 → 关闭池与遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
