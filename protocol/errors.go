package protocol

import (
	"errors"
	"fmt"
)

// ErrUnsupportedStatement is returned for SQL outside the supported surface
var ErrUnsupportedStatement = errors.New("unsupported statement")

// SyntaxError wraps a parse failure with the offending statement
type SyntaxError struct {
	SQL string
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q: %v", truncateSQLForLog(e.SQL, 80), e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// truncateSQLForLog returns first n chars of SQL for logging
func truncateSQLForLog(sql string, n int) string {
	if len(sql) <= n {
		return sql
	}
	return sql[:n] + "..."
}
