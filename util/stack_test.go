package util

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestStack(t *testing.T) {
	var s Stack[int]
	_, ok := s.Pop()
	assert.False(t, ok)

	s.Push(1)
	s.Push(2)
	assert.Equal(t, 2, s.Len())

	top, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, 2, top)
	assert.Equal(t, 2, s.Len())

	top, ok = s.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, top)
	assert.Equal(t, 1, s.Len())

	s.Push(3)
	s.Clear()
	assert.Equal(t, 0, s.Len())
	_, ok = s.Pop()
	assert.False(t, ok)
	_, ok = s.Peek()
	assert.False(t, ok)
}
