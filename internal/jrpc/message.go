package jrpc

import "strconv"

// MessageType classifies an incoming JSON-RPC message from the database.
type MessageType int

const (
	// TypeUnknown is a well-formed object of no recognized shape.
	TypeUnknown MessageType = iota
	// TypeResponse carries a "result" field.
	TypeResponse
	// TypeUpdate is an "update" method notification.
	TypeUpdate
)

// Sentinels for the decoded "id" field.
const (
	// IDNotFound means the message has no "id" field.
	IDNotFound int64 = -1
	// IDNull means the "id" field is an explicit null: a notification.
	IDNull int64 = -2
)

// Sentinels for well-known field token indexes.
const (
	// TokenNotFound means the field is absent.
	TokenNotFound = -1
	// TokenNull means the field is present and explicitly null.
	TokenNull = -2
)

// Message is the parsed view of one JSON-RPC message. Tokens index into
// the source buffer the message was parsed from.
type Message struct {
	// Tokens is the backing token array; only Tokens[:Count] are valid.
	Tokens [MaxTokens]Token
	// Count is the total parsed token count, including any tokens of
	// pipelined objects following the first one.
	Count int
	// End is the byte offset just past the first top-level object: the
	// framing offset used to slide a shared receive buffer.
	End int
	// ID is the decoded "id" value, or IDNotFound / IDNull.
	ID int64
	// Error is the token index of the "error" value, TokenNull or TokenNotFound.
	Error int
	// Result is the token index of the "result" value, TokenNull or TokenNotFound.
	Result int
	// Method is the token index of the "method" value, TokenNull or TokenNotFound.
	Method int
	// Params is the token index of the "params" value, TokenNull or TokenNotFound.
	Params int
	// Type is the message classification.
	Type MessageType
}

// Parse tokenizes js and binds the well-known top-level fields. It walks
// keys at depth 1 only and stops at the end of the first object; unknown
// keys are skipped whole via sibling navigation, so a pipelined second
// object is never descended into.
// It returns false when js does not begin with a complete JSON object. The
// whole of js is tokenized, so it also returns false when a pipelined
// object after the first is incomplete or malformed, or when js as a whole
// needs more than MaxTokens tokens.
func Parse(m *Message, js []byte) bool {
	m.Type = TypeUnknown
	m.ID = IDNotFound
	m.Error = TokenNotFound
	m.Result = TokenNotFound
	m.Method = TokenNotFound
	m.Params = TokenNotFound
	m.End = 0

	m.Count = Tokenize(js, m.Tokens[:])
	if m.Count < 0 {
		return false
	}

	if m.Count == 0 || m.Tokens[0].Type != TypeObject {
		return false
	}

	t := m.Tokens[:m.Count]
	end := NextIndex(t, m.Count, 0)
	for i := 1; i < end; i = NextIndex(t, end, i) {
		// A key can only bind a field when its value token exists.
		hasValue := t[i].Size > 0 && i+1 < m.Count
		switch {
		case hasValue && EqualString(js, &t[i], "id"):
			i++
			if IsNull(js, &t[i]) {
				m.ID = IDNull
			} else {
				m.ID = decodeInt(js[t[i].Start:t[i].End])
			}

		case hasValue && EqualString(js, &t[i], "error"):
			i++
			if IsNull(js, &t[i]) {
				m.Error = TokenNull
			} else {
				m.Error = i
			}

		case hasValue && EqualString(js, &t[i], "result"):
			i++
			m.Type = TypeResponse
			if IsNull(js, &t[i]) {
				m.Result = TokenNull
			} else {
				m.Result = i
			}

		case hasValue && EqualString(js, &t[i], "method"):
			i++
			if IsNull(js, &t[i]) {
				m.Method = TokenNull
			} else {
				m.Method = i
				if EqualString(js, &t[i], "update") {
					m.Type = TypeUpdate
				}
			}

		case hasValue && EqualString(js, &t[i], "params"):
			i++
			if IsNull(js, &t[i]) {
				m.Params = TokenNull
			} else {
				m.Params = i
			}

		default:
			i++
		}
	}

	m.End = m.Tokens[0].End
	return true
}

// decodeInt decodes a leading base-10 integer, tolerating trailing bytes
// the way strtol does. Undecodable input yields zero.
func decodeInt(b []byte) int64 {
	i := 0
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		i++
	}
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	n, err := strconv.ParseInt(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
