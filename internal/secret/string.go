package secret

// String is a minimal wrapper around a plaintext secret whose backing array
// is zeroed once the caller is done with it, per spec §9's BSTR-replacement
// note. The plaintext escapes the wrapper only as a string passed to the
// temp password file writer.
type String struct {
	buf []byte
}

// NewString takes ownership of plaintext and wraps it. Callers should not
// retain the original string value past this call where avoidable — Go
// strings are immutable, so String cannot scrub the original backing
// memory, only its own copy; this is documented, not hidden.
func NewString(plaintext string) *String {
	buf := make([]byte, len(plaintext))
	copy(buf, plaintext)
	return &String{buf: buf}
}

// Expose returns the plaintext for exactly as long as the caller needs it
// to write the temp password file.
func (s *String) Expose() string {
	if s == nil {
		return ""
	}
	return string(s.buf)
}

// Zero overwrites the backing array with zero bytes. Must be called on
// every exit path — success, failure, or panic.
func (s *String) Zero() {
	if s == nil {
		return
	}
	for i := range s.buf {
		s.buf[i] = 0
	}
}
