package queue

import (
	"errors"
	"strings"
)

// ErrDuplicateItem indicates an insert collided with an existing record.
// Submission ids are message ids assigned upstream, so a duplicate means the
// same message was delivered twice and the second copy must be dropped.
var ErrDuplicateItem = errors.New("queue item already exists")

const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
