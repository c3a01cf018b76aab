package relay

// StreamReassembler buffers an incomplete trailing UTF-8 sequence across
// successive reads, so the decoder downstream is never asked to decode a
// character that was split at a recv boundary.
//
// It holds back at most 3 bytes (a 4-byte lead plus up to 2 of its
// continuation bytes still leaves 3 bytes pending). The held suffix, if
// non-empty, is always a prefix of a multi-byte sequence whose full length
// has not yet arrived.
//
// A StreamReassembler is not safe for concurrent use; each stream owns one.
type StreamReassembler struct {
	held []byte
}

// NewStreamReassembler creates an empty StreamReassembler.
func NewStreamReassembler() *StreamReassembler {
	return &StreamReassembler{}
}

// Feed prepends the suffix held back by the previous call to raw, then strips
// and holds back any trailing incomplete multi-byte sequence. It returns the
// bytes that are safe to decode.
//
// The returned slice does not alias raw and remains valid after the caller
// reuses its read buffer.
//
// Feed does not validate UTF-8 well-formedness; malformed byte runs are
// passed through unchanged and are left to the decoder's recovery policy.
func (r *StreamReassembler) Feed(raw []byte) []byte {
	data := make([]byte, 0, len(r.held)+len(raw))
	data = append(data, r.held...)
	data = append(data, raw...)
	r.held = r.held[:0]

	// Count the trailing continuation bytes (10xxxxxx).
	i := len(data)
	for i > 0 && data[i-1]>>6 == 0b10 {
		i--
	}
	nCont := len(data) - i

	if i == 0 {
		// The entire input is continuation bytes; no lead byte to anchor on.
		// Hold everything back.
		r.held = append(r.held, data...)
		return nil
	}

	// Determine how many continuation bytes a complete sequence starting at
	// the last lead byte requires.
	lead := data[i-1]
	expected := 0
	switch {
	case lead>>5 == 0b110:
		expected = 1
	case lead>>4 == 0b1110:
		expected = 2
	case lead>>3 == 0b11110:
		expected = 3
	}

	if nCont < expected {
		// The sequence is still incomplete; hold back the lead byte and its
		// partial continuation run.
		r.held = append(r.held, data[i-1:]...)
		return data[:i-1]
	}

	return data
}

// PendingSize returns the number of held-back bytes, 0 to 3.
func (r *StreamReassembler) PendingSize() int {
	return len(r.held)
}

// Pending returns a copy of the held-back suffix, if any.
func (r *StreamReassembler) Pending() []byte {
	if len(r.held) == 0 {
		return nil
	}
	pending := make([]byte, len(r.held))
	copy(pending, r.held)

	return pending
}
