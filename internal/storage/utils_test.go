package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrToUint(t *testing.T) {
	v, err := StrToUint("42")
	assert.NoError(t, err)
	assert.Equal(t, uint(42), v)

	_, err = StrToUint("")
	assert.Error(t, err)

	_, err = StrToUint("-1")
	assert.Error(t, err)

	_, err = StrToUint("abc")
	assert.Error(t, err)

	v, err = StrToUint("0")
	assert.NoError(t, err)
	assert.Equal(t, uint(0), v)
}

// The pattern is matched against LOWER(column), so mixed-case input must be
// folded or the filter matches nothing.
func TestLikePatternFoldsCase(t *testing.T) {
	assert.Equal(t, "%nouakchott%", likePattern("Nouakchott"))
	assert.Equal(t, "%nouakchott%", likePattern("nouakchott"))
	assert.Equal(t, "%%", likePattern(""))
}
