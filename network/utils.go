package network

import (
	"errors"
	"os"
	"syscall"
)

// UnlinkUdsFile 删除 unix 域套接字遗留的文件，文件不存在时不报错。
func UnlinkUdsFile(network, addr string) error {
	if network != "unix" {
		return nil
	}
	if err := syscall.Unlink(addr); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
