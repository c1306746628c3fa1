//go:build darwin

package stream

import "golang.org/x/sys/unix"

const fionread = unix.FIONREAD
