// 版权所有 2024 StreamBridge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的字节流指标采集能力。

# 概述

Collector 实现 stream.Observer，挂到 Publisher 上即可记录每条流的
生命周期与数据量。默认使用 promauto 注册到默认 Registry，
测试或多实例场景可通过 NewCollectorWith 指定 Registerer。

# 主要能力

  - 流指标：开始总数、活跃流 Gauge、按 outcome 分组的终止计数与耗时。
  - 错误指标：按错误码（SOURCE_READ、SOURCE_CLOSE 等）分组的失败计数。
  - 数据指标：字节块数、字节数、块大小分布。
  - 需求指标：request(n) 调用次数，区分 bounded 与 unbounded。
*/
package metrics
