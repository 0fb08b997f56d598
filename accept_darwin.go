//go:build darwin

package evloop

import "golang.org/x/sys/unix"

// darwin 没有 accept4，分两步设置 O_NONBLOCK 与 FD_CLOEXEC
func accept(lfd int) (int, unix.Sockaddr, error) {
	fd, sa, err := unix.Accept(lfd)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	unix.CloseOnExec(fd)
	return fd, sa, nil
}
