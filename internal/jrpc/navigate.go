package jrpc

import "bytes"

// tokenWeight returns the number of tokens forming tokens[0]: the token
// itself plus its whole subtree. Keys and values of an object both count.
func tokenWeight(tokens []Token, count int) int {
	if count == 0 || len(tokens) == 0 {
		return 0
	}

	t := &tokens[0]
	switch t.Type {
	case TypePrimitive, TypeString:
		return 1

	case TypeObject:
		weight := 0
		for i := 0; i < t.Size; i++ {
			key := &tokens[1+weight]
			weight += tokenWeight(tokens[1+weight:], count-weight)
			if key.Size > 0 {
				weight += tokenWeight(tokens[1+weight:], count-weight)
			}
		}
		return weight + 1

	case TypeArray:
		weight := 0
		for i := 0; i < t.Size; i++ {
			weight += tokenWeight(tokens[1+weight:], count-weight)
		}
		return weight + 1

	default:
		return 0
	}
}

// NextIndex returns the index of the next token at the same nesting level
// as tokens[index], or count when there is none. Object keys and their
// values are considered siblings.
func NextIndex(tokens []Token, count, index int) int {
	if index >= count {
		return count
	}
	return index + tokenWeight(tokens[index:], count-index)
}

// EqualString reports whether the token is a JSON string whose literal
// bytes equal s.
func EqualString(js []byte, t *Token, s string) bool {
	return equal(js, t, TypeString, s)
}

// EqualPrimitive reports whether the token is a primitive (number, boolean
// or null) whose literal bytes equal s.
func EqualPrimitive(js []byte, t *Token, s string) bool {
	return equal(js, t, TypePrimitive, s)
}

// IsNull reports whether the token is the primitive null.
func IsNull(js []byte, t *Token) bool {
	return t.Type == TypePrimitive && t.End-t.Start == 4 && js[t.Start] == 'n'
}

func equal(js []byte, t *Token, want TokenType, s string) bool {
	return t.Type == want &&
		t.End-t.Start == len(s) &&
		bytes.Equal(js[t.Start:t.End], []byte(s))
}
