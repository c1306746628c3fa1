// Package config 提供 streambridge 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（STREAMBRIDGE_ 前缀）的顺序合并，
// 覆盖字节流、数据源限速、HTTP 服务、日志、指标与遥测。
package config
