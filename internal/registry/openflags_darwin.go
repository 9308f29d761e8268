package registry

import "golang.org/x/sys/unix"

// O_EVTONLY keeps the descriptor from blocking unmounts of the volume.
const openFlags = unix.O_EVTONLY | unix.O_NONBLOCK | unix.O_CLOEXEC
