package util

// Stack is a LIFO of A. The zero value is an empty stack.
type Stack[A any] struct {
	items []A
}

func (s *Stack[A]) Push(v A) {
	s.items = append(s.items, v)
}

func (s *Stack[A]) Pop() (ret A, ok bool) {
	if len(s.items) <= 0 {
		return ret, false
	}
	lastIndex := len(s.items) - 1
	defer func() {
		var zero A
		s.items[lastIndex] = zero
		s.items = s.items[:lastIndex]
	}()
	return s.items[lastIndex], true
}

// Peek returns the item Pop would return, leaving it on the stack
func (s *Stack[A]) Peek() (ret A, ok bool) {
	if len(s.items) <= 0 {
		return ret, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[A]) Len() int {
	return len(s.items)
}

// Clear drops every item but keeps the backing array for reuse
func (s *Stack[A]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}
