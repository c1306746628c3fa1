// 版权所有 2024 StreamBridge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 stream 将阻塞式、拉取型的字节数据源桥接为按需推送的字节块流。

# 概述

数据源（Source）只提供同步的 Read、尽力而为的 Available 探测和 Close。
下游订阅者（Subscriber）通过 Subscription.Request(n) 声明需求，
Publisher 在调用方的 goroutine 上同步读取数据源，最多推送 n 个字节块，
并保证完成或失败信号恰好投递一次。

# 核心类型

  - Source：阻塞数据源契约（io.ReadCloser + Available）
  - Publisher：流入口，原子地只允许一个订阅者订阅
  - Subscriber / Subscription：消费者契约与需求控制句柄
  - Observer：指标与追踪钩子，见 internal/metrics 与 internal/telemetry

# 阻塞语义

Request 会在调用方 goroutine 上执行读取循环，可能阻塞到数据到达。
运行在事件循环上的调用方应把 Request 派发到专用 goroutine。
本包自身不启动任何 goroutine。

# 数据源适配器

  - NewReaderSource：任意 io.Reader，探测值为 bufio 已缓冲字节数
  - NewBytesSource：内存字节切片，探测值精确
  - NewFileSource：*os.File，在 unix 上通过 FIONREAD 探测
  - NewPacedSource：基于 golang.org/x/time/rate 的限速包装
*/
package stream
