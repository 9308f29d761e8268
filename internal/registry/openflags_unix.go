//go:build unix && !darwin

package registry

import "golang.org/x/sys/unix"

const openFlags = unix.O_RDONLY | unix.O_NONBLOCK | unix.O_CLOEXEC
