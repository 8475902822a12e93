package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"10.0.0.1", "::1"}, SplitList(" 10.0.0.1, ::1,,10.0.0.1 "))
	assert.Empty(t, SplitList(""))
	assert.Empty(t, SplitList(" , "))
}

func TestDedupeAndTrimKeepsOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, DedupeAndTrim([]string{" b", "a ", "b"}))
}
