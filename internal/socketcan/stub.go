//go:build !linux

package socketcan

import "errors"

var ErrTxOverflow = errors.New("socketcan tx overflow")
