// 版权所有 2024 StreamBridge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package sink 提供现成的 stream.Subscriber 实现。
//
// # 概述
//
// 这些订阅者覆盖最常见的消费方式：
//
//   - Collector：按批次请求并收集全部字节块
//   - WriterSubscriber：逐块写入 io.Writer，每写完一块再请求下一块
//   - WebSocketSubscriber：把每个字节块作为二进制消息发送到 WebSocket 连接
//
// # 使用方式
//
//	p, _ := stream.NewPublisher(stream.NewReaderSource(os.Stdin))
//	n, err := sink.Copy(os.Stdout, p)
package sink
