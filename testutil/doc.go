// Copyright 2026 StreamBridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 streambridge 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue，支持超时轮询等待条件满足
  - 数据工具: Concat / RandomBytes / SplitLengths

# 子包

  - testutil/mocks: MockSource（可编排的阻塞数据源，支持错误注入、
    探测值脚本与阻塞读取）和 RecordingSubscriber（记录所有信号的订阅者）

# 使用示例

	src := mocks.NewMockSource([]byte("abcdefg")).WithAvailable(mocks.ZeroProbe)
	sub := mocks.NewRecordingSubscriber().WithInitialRequest(10)
	pub, _ := stream.NewPublisher(src, stream.WithChunkSize(4))
	pub.Subscribe(sub)
*/
package testutil
