package models

import (
	"strconv"
	"strings"

	dErrors "gatekeeper/pkg/domain-errors"
)

const (
	DefaultHitsLimit = 100
	MaxHitsLimit     = 1000
	maxBucketKeyLen  = 255
)

// ResetRequest is the admin reset input taken from the URL.
type ResetRequest struct {
	BucketKey string
}

func (r *ResetRequest) Normalize() {
	if r == nil {
		return
	}
	r.BucketKey = strings.TrimSpace(r.BucketKey)
}

func (r *ResetRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.BucketKey) > maxBucketKeyLen {
		return dErrors.New(dErrors.CodeValidation, "key must be 255 characters or less")
	}
	if r.BucketKey == "" {
		return dErrors.New(dErrors.CodeValidation, "key is required")
	}
	return nil
}

// ParseHitsLimit reads the ?limit= query value for the recent hits endpoint.
func ParseHitsLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultHitsLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
	}
	return min(n, MaxHitsLimit), nil
}
