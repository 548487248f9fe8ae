package utils

import "github.com/sony/gobreaker"

// ExecuteWithBreaker runs fn through cb, keeping the call site typed instead
// of round-tripping through interface{}.
func ExecuteWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return res.(T), nil
}
