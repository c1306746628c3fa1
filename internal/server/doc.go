// 版权所有 2024 StreamBridge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理，支持非阻塞启动、
优雅关闭与上下文驱动的运行模式。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程。支持 HTTP 与 TLS 两种启动模式。
所有请求上下文派生自 Manager 的基础上下文，关闭开始时取消，
已升级为 WebSocket 的长连接据此结束推送。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道，提供 Start/StartTLS/Run/Shutdown 等生命周期方法。
  - Config：服务器配置，由 config.ServerConfig 转换而来。

# 主要能力

  - 非阻塞启动：Start/StartTLS 在后台 goroutine 中运行服务。
  - 阻塞运行：Run 在 ctx 取消或服务异常时优雅关闭，适合与 errgroup 搭配。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。
  - 状态查询：IsRunning/Addr 提供运行状态与实际监听地址查询。
*/
package server
