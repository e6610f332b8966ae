package logger

import (
	"context"
	"errors"
	"fmt"
)

// ErrorChain returns the message of err and of every error it wraps,
// outermost first. Joined errors contribute each branch in order.
func ErrorChain(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			out = append(out, e.Error())
			switch u := e.(type) {
			case interface{ Unwrap() []error }:
				for _, branch := range u.Unwrap() {
					walk(branch)
				}
				return
			default:
				e = errors.Unwrap(e)
			}
		}
	}
	walk(err)
	return out
}

// Error logs err at error level with its type and full chain.
func Error(ctx context.Context, msg string, err error, keysAndValues ...any) {
	if err == nil {
		return
	}
	From(ctx).Errorw(msg, append(errorFields(err), keysAndValues...)...)
}

// Warn logs err at warn level with its type and full chain.
func Warn(ctx context.Context, msg string, err error, keysAndValues ...any) {
	if err == nil {
		From(ctx).Warnw(msg, keysAndValues...)
		return
	}
	From(ctx).Warnw(msg, append(errorFields(err), keysAndValues...)...)
}

func errorFields(err error) []any {
	fields := []any{
		"error", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
	}
	if chain := ErrorChain(err); len(chain) > 1 {
		fields = append(fields, "error_chain", chain)
	}
	return fields
}
