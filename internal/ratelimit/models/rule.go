package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
)

// Period is the window unit of a quota rule.
type Period string

const (
	PeriodSecond Period = "second"
	PeriodMinute Period = "minute"
	PeriodHour   Period = "hour"
	PeriodDay    Period = "day"
)

// Duration returns the window length, or 0 for an unknown period.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodSecond:
		return time.Second
	case PeriodMinute:
		return time.Minute
	case PeriodHour:
		return time.Hour
	case PeriodDay:
		return 24 * time.Hour
	}
	return 0
}

func parsePeriod(s string) (Period, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	p := Period(s)
	return p, p.Duration() > 0
}

// QuotaRule allows Count requests per Period. Immutable once parsed.
type QuotaRule struct {
	Count  int    `json:"count"`
	Period Period `json:"period"`
}

// ParseRule parses "N/period". "N per period", plural periods and any casing
// are accepted ("10/hour", "10 per Hours").
func ParseRule(s string) (QuotaRule, error) {
	raw := strings.TrimSpace(s)
	countPart, periodPart, ok := strings.Cut(raw, "/")
	if !ok {
		fields := strings.Fields(raw)
		if len(fields) != 3 || !strings.EqualFold(fields[1], "per") {
			return QuotaRule{}, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("invalid rate limit %q: expected N/period", s))
		}
		countPart, periodPart = fields[0], fields[2]
	}

	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil || count <= 0 {
		return QuotaRule{}, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("invalid rate limit %q: count must be a positive integer", s))
	}
	period, ok := parsePeriod(periodPart)
	if !ok {
		return QuotaRule{}, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("invalid rate limit %q: period must be second, minute, hour or day", s))
	}
	return QuotaRule{Count: count, Period: period}, nil
}

// MustParseRule is ParseRule for literals known to be valid.
func MustParseRule(s string) QuotaRule {
	r, err := ParseRule(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Window is the fixed window length of the rule.
func (r QuotaRule) Window() time.Duration {
	return r.Period.Duration()
}

// String renders the canonical "N/period" form used in keys and responses.
func (r QuotaRule) String() string {
	return strconv.Itoa(r.Count) + "/" + string(r.Period)
}

// IsZero reports whether the rule was never set.
func (r QuotaRule) IsZero() bool {
	return r.Count == 0 && r.Period == ""
}

// EffectiveQuota is the resolved limit for a request: either Unbounded or Rule.
type EffectiveQuota struct {
	Unbounded bool
	Rule      QuotaRule
}

// Unbounded is the quota for whitelisted or unlimited traffic.
func Unbounded() EffectiveQuota {
	return EffectiveQuota{Unbounded: true}
}

// Limited wraps a concrete rule.
func Limited(rule QuotaRule) EffectiveQuota {
	return EffectiveQuota{Rule: rule}
}

func (q EffectiveQuota) String() string {
	if q.Unbounded {
		return "unbounded"
	}
	return q.Rule.String()
}
