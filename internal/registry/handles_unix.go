//go:build unix

package registry

import "golang.org/x/sys/unix"

// SystemHandles opens real descriptors for kernel interest.
type SystemHandles struct{}

// Open opens path for event monitoring only. EINTR is retried.
func (SystemHandles) Open(path string) (int, error) {
	for {
		fd, err := unix.Open(path, openFlags, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, err
		}
		return fd, nil
	}
}

// Close closes fd.
func (SystemHandles) Close(fd int) error {
	return unix.Close(fd)
}
