package models

import (
	"strings"

	dErrors "gatekeeper/pkg/domain-errors"
)

// KeyPrefix is the kind of identity a bucket is keyed on.
type KeyPrefix string

const (
	KeyPrefixIP   KeyPrefix = "ip"
	KeyPrefixUser KeyPrefix = "user"
)

// CounterNamespace prefixes every counter key in the store.
const CounterNamespace = "rate_limit"

// BucketKey identifies whose requests are counted: "user:<id>" or "ip:<address>".
type BucketKey string

func NewUserBucketKey(userID string) BucketKey {
	return BucketKey(string(KeyPrefixUser) + ":" + userID)
}

func NewIPBucketKey(addr string) BucketKey {
	return BucketKey(string(KeyPrefixIP) + ":" + addr)
}

// Split returns the prefix and raw identifier. ok is false for bare ids.
func (k BucketKey) Split() (prefix KeyPrefix, id string, ok bool) {
	for _, p := range []KeyPrefix{KeyPrefixUser, KeyPrefixIP} {
		if rest, found := strings.CutPrefix(string(k), string(p)+":"); found {
			return p, rest, true
		}
	}
	return "", string(k), false
}

func (k BucketKey) String() string {
	return string(k)
}

// CounterKey builds the store key for one bucket under one rule:
//
//	rate_limit:<prefix>:<escaped id>:<user_type>:<category>:<N>/<period>
//
// The identifier is escaped so IPv6 literals and user-controlled ids cannot
// spill into neighbouring segments.
func CounterKey(c Classification, rule QuotaRule) string {
	prefix, id, ok := c.BucketKey.Split()
	if !ok {
		prefix = KeyPrefixIP
	}
	return strings.Join([]string{
		CounterNamespace,
		string(prefix),
		escapeKeySegment(id),
		string(c.UserType),
		string(c.Category),
		rule.String(),
	}, ":")
}

// CounterKeyParts is a parsed counter key.
type CounterKeyParts struct {
	BucketKey BucketKey
	UserType  UserType
	Category  EndpointCategory
	Rule      string
}

// ParseCounterKey reverses CounterKey. ok is false for foreign keys.
func ParseCounterKey(key string) (CounterKeyParts, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 6 || parts[0] != CounterNamespace {
		return CounterKeyParts{}, false
	}
	prefix := KeyPrefix(parts[1])
	if prefix != KeyPrefixIP && prefix != KeyPrefixUser {
		return CounterKeyParts{}, false
	}
	return CounterKeyParts{
		BucketKey: BucketKey(string(prefix) + ":" + unescapeKeySegment(parts[2])),
		UserType:  UserType(parts[3]),
		Category:  EndpointCategory(parts[4]),
		Rule:      parts[5],
	}, true
}

// CounterPrefixes returns the key prefixes covering every counter of a bucket.
// A bare identifier (no "user:"/"ip:") matches both kinds.
func CounterPrefixes(bucketKey string) ([]string, error) {
	bucketKey = strings.TrimSpace(bucketKey)
	if bucketKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "bucket key is required")
	}

	build := func(p KeyPrefix, id string) string {
		return CounterNamespace + ":" + string(p) + ":" + escapeKeySegment(id) + ":"
	}

	prefix, id, ok := BucketKey(bucketKey).Split()
	if ok {
		if id == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "bucket key identifier is required")
		}
		return []string{build(prefix, id)}, nil
	}
	return []string{build(KeyPrefixUser, id), build(KeyPrefixIP, id)}, nil
}

// escapeKeySegment makes the segment delimiter-free and injective:
// '_' becomes "__" first, then ':' becomes "_c".
func escapeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	return strings.ReplaceAll(s, ":", "_c")
}

func unescapeKeySegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '_' && i+1 < len(s) {
			switch s[i+1] {
			case '_':
				b.WriteByte('_')
				i++
				continue
			case 'c':
				b.WriteByte(':')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
