//go:build linux

package keycodec

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// ReadKeymapFD maps a keymap file descriptor the way compositors hand it
// out and returns its text. The descriptor is not closed.
func ReadKeymapFD(fd int, size uint32) (string, error) {
	if size == 0 {
		return "", fmt.Errorf("%w: empty keymap", ErrMalformedKeymap)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return "", fmt.Errorf("mmap keymap: %w", err)
	}
	defer unix.Munmap(data)
	return strings.TrimRight(string(data), "\x00"), nil
}

// ReadKeymapFile loads a keymap from disk through ReadKeymapFD.
func ReadKeymapFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open keymap: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat keymap: %w", err)
	}
	return ReadKeymapFD(int(f.Fd()), uint32(info.Size()))
}
