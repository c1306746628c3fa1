// Copyright (c) StreamBridge Authors.
// Licensed under the MIT License.

/*
Package types 提供 streambridge 的共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。stream、sink 与 metrics
通过这里的错误码区分失败原因，而不必解析错误字符串。

# 核心类型

  - Error / ErrorCode — 结构化错误，携带错误码、流 ID 与底层原因（支持 errors.Is/As）

# 错误码

  - DUPLICATE_ATTACH   — 同一个 Publisher 被第二个订阅者订阅
  - INVALID_DEMAND     — Request 的参数不是正数
  - SOURCE_READ        — 数据源探测或读取失败
  - SOURCE_CLOSE       — 流正常结束时关闭数据源失败
  - CONSUMER_CALLBACK  — 订阅者回调发生 panic

# 主要能力

  - 错误工具链：AsError / GetErrorCode / IsErrorCode
  - 常用错误构造：NewDuplicateAttachError / NewInvalidDemandError /
    NewSourceReadError / NewSourceCloseError / NewConsumerCallbackError
*/
package types
