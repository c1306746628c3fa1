//go:build linux

package stream

import "golang.org/x/sys/unix"

// Linux 上 FIONREAD 以 TIOCINQ 的名字导出
const fionread = unix.TIOCINQ
