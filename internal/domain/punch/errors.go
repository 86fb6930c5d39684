package punch

import "errors"

var (
	ErrPunchNotFound = errors.New("punch record not found")
	ErrEmptyInsert   = errors.New("no punches to insert")
)
