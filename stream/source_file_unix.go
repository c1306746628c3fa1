//go:build linux || darwin

package stream

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileAvailable 通过 FIONREAD（Linux 上名为 TIOCINQ）查询可读字节数。
// 描述符不支持该 ioctl 时返回 0，读取循环会退回到单字节探测。
func fileAvailable(f *os.File) (int, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var n int
	var ioctlErr error
	if err := rc.Control(func(fd uintptr) {
		n, ioctlErr = unix.IoctlGetInt(int(fd), fionread)
	}); err != nil {
		return 0, err
	}
	if ioctlErr != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}
