package util

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestPairString(t *testing.T) {
	assert.Equal(t, "?0 = List<?1>", NewPair("?0", "List<?1>").String())
	assert.Equal(t, "1 = true", NewPair(1, true).String())
}
