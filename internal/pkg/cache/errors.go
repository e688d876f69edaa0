package cache

import "errors"

// ErrMiss is returned by Store.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")
