//go:build !unix

package mmap

import "os"

func mmap(f *os.File, size int, opt Options) ([]byte, error) {
	return nil, ErrUnsupported
}

func munmap(b []byte) error {
	return ErrUnsupported
}
