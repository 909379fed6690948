package fat32

import "errors"

var (
	ErrBrokenChain  = errors.New("fat32: cluster chain references a free, reserved or bad cluster")
	ErrNotFound     = errors.New("fat32: no such file or directory")
	ErrNotDirectory = errors.New("fat32: not a directory")
	ErrNotFile      = errors.New("fat32: not a regular file")
	ErrSeekBounds   = errors.New("fat32: seek out of bounds")
)
