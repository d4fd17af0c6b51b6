package cache

import (
	"encoding/json"
	"fmt"
)

// LimitKeyer lets a struct argument choose the value that partitions its
// rate-limit quota, typically the ticker symbol.
type LimitKeyer interface {
	LimitKey() string
}

// cacheKey combines the operation name with the canonical JSON encoding of
// its arguments. Struct fields encode in declaration order and map keys are
// sorted, so equal arguments always produce equal keys.
func cacheKey[A any](name string, args A) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to build cache key for %s: %w", name, err)
	}
	return name + ":" + string(b), nil
}

// limitKey partitions the quota of name by a string argument or LimitKey().
func limitKey[A any](name string, args A) string {
	switch v := any(args).(type) {
	case string:
		if v != "" {
			return name + ":" + v
		}
	case LimitKeyer:
		if k := v.LimitKey(); k != "" {
			return name + ":" + k
		}
	}
	return name
}
