package model

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderDetailNotFound = errors.New("order detail not found")
)
