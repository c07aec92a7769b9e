package tasks

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	defaultRandomLength = 16
	maxRandomLength     = 1024
	alphanumeric        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Compute adds the numeric args x and y.
func Compute(task Task) (any, error) {
	x, err := numberArg(task.Args, "x")
	if err != nil {
		return nil, err
	}
	y, err := numberArg(task.Args, "y")
	if err != nil {
		return nil, err
	}
	return x + y, nil
}

// GenerateRandomString returns an alphanumeric string of args.length characters (default 16).
func GenerateRandomString(task Task) (any, error) {
	length := defaultRandomLength
	if _, ok := task.Args["length"]; ok {
		n, err := numberArg(task.Args, "length")
		if err != nil {
			return nil, err
		}
		if n != float64(int(n)) || n < 1 || n > maxRandomLength {
			return nil, fmt.Errorf("%w: length must be an integer between 1 and %d", ErrPoisonMessage, maxRandomLength)
		}
		length = int(n)
	}

	out := make([]byte, length)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}

// numberArg reads a JSON number argument. Integers set directly in Go code are accepted too.
func numberArg(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing argument %q", ErrPoisonMessage, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: argument %q must be a number", ErrPoisonMessage, key)
	}
}
