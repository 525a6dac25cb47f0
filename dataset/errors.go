package dataset

import "errors"

var (
	ErrDecode          = errors.New("image decode failure")
	ErrUnknownImage    = errors.New("annotation references unknown image id")
	ErrIndexOutOfRange = errors.New("sample index out of range")
	ErrEmptyBatch      = errors.New("empty batch")
	ErrShapeMismatch   = errors.New("sample shapes differ")
)
