package models

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "gatekeeper/pkg/domain-errors"
)

// KeySuite covers counter key construction. Identifiers are user or network
// controlled, so escaping must keep distinct buckets distinct.
type KeySuite struct {
	suite.Suite
	rule QuotaRule
}

func TestKeySuite(t *testing.T) {
	suite.Run(t, &KeySuite{rule: MustParseRule("10/hour")})
}

func (s *KeySuite) classification(key BucketKey) Classification {
	return Classification{UserType: UserTypeAnonymous, Category: CategoryAuthLogin, BucketKey: key}
}

func (s *KeySuite) TestCounterKeyFormat() {
	s.Equal("rate_limit:ip:203.0.113.9:anonymous:auth_login:10/hour",
		CounterKey(s.classification(NewIPBucketKey("203.0.113.9")), s.rule))

	s.Run("ipv6 colons are escaped", func() {
		s.Equal("rate_limit:ip:2001_cdb8_c_c1:anonymous:auth_login:10/hour",
			CounterKey(s.classification(NewIPBucketKey("2001:db8::1")), s.rule))
	})
}

func (s *KeySuite) TestNoCollisions() {
	ids := []string{"a:b", "a_b", "a_cb", "a__b", "a_:b"}
	seen := map[string]string{}
	for _, id := range ids {
		key := CounterKey(s.classification(NewUserBucketKey(id)), s.rule)
		if other, dup := seen[key]; dup {
			s.Failf("collision", "%q and %q map to %q", id, other, key)
		}
		seen[key] = id
	}
}

func (s *KeySuite) TestParseCounterKeyRoundTrip() {
	for _, bucket := range []BucketKey{
		NewUserBucketKey("42"),
		NewUserBucketKey("evil:user_name"),
		NewIPBucketKey("::1"),
	} {
		c := Classification{UserType: UserTypePremium, Category: CategoryAPIWrite, BucketKey: bucket}
		parts, ok := ParseCounterKey(CounterKey(c, s.rule))
		s.Require().True(ok)
		s.Equal(bucket, parts.BucketKey)
		s.Equal(UserTypePremium, parts.UserType)
		s.Equal(CategoryAPIWrite, parts.Category)
		s.Equal("10/hour", parts.Rule)
	}

	s.Run("foreign keys are rejected", func() {
		for _, key := range []string{"rate_limit_hits", "rate_limit:x:1:a:b:c", "other:ip:1:a:b:c", "rate_limit:ip:1"} {
			_, ok := ParseCounterKey(key)
			s.False(ok, key)
		}
	})
}

func (s *KeySuite) TestCounterPrefixes() {
	s.Run("prefixed key", func() {
		prefixes, err := CounterPrefixes("user:42")
		s.Require().NoError(err)
		s.Equal([]string{"rate_limit:user:42:"}, prefixes)
	})

	s.Run("ipv6 key is escaped", func() {
		prefixes, err := CounterPrefixes("ip:::1")
		s.Require().NoError(err)
		s.Equal([]string{"rate_limit:ip:_c_c1:"}, prefixes)
	})

	s.Run("bare id covers both kinds", func() {
		prefixes, err := CounterPrefixes("42")
		s.Require().NoError(err)
		s.ElementsMatch([]string{"rate_limit:user:42:", "rate_limit:ip:42:"}, prefixes)
	})

	s.Run("prefix must not match longer ids", func() {
		prefixes, _ := CounterPrefixes("user:4")
		key := CounterKey(s.classification(NewUserBucketKey("42")), s.rule)
		s.NotContains(key, prefixes[0])
	})

	s.Run("empty input is a validation error", func() {
		for _, in := range []string{"", "  ", "user:", "ip:"} {
			_, err := CounterPrefixes(in)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), in)
		}
	})
}

func (s *KeySuite) TestParseHitsLimit() {
	n, err := ParseHitsLimit("")
	s.NoError(err)
	s.Equal(DefaultHitsLimit, n)

	n, err = ParseHitsLimit("5000")
	s.NoError(err)
	s.Equal(MaxHitsLimit, n)

	_, err = ParseHitsLimit("0")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
