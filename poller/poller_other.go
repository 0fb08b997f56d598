//go:build !linux && !darwin

package poller

import "errors"

// New 在不支持的平台返回错误。
func New() (Poller, error) {
	return nil, errors.New("poller: platform not supported (requires epoll or kqueue)")
}
