package gtick

import (
	"errors"
)

// ErrInvalidArgument 参数非法.
var ErrInvalidArgument = errors.New("invalid argument")
