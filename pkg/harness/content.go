package harness

const (
	contentModulus = 90
	contentBase    = 32
)

// Generate returns size bytes of deterministic content: byte i is
// (i mod 90) + 32, which keeps every byte printable. Sizes <= 0 yield an
// empty slice.
func Generate(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i%contentModulus + contentBase)
	}
	return buf
}

// GenerateString is Generate with the final byte forced to 0, the layout of
// a NUL-terminated string. It is what test fixtures are written with.
func GenerateString(size int) []byte {
	buf := Generate(size)
	if len(buf) > 0 {
		buf[len(buf)-1] = 0
	}
	return buf
}

// OffsetByte is the expected byte at offset in a Generate buffer. For a
// GenerateString fixture of size N it only holds on [0, N-2].
func OffsetByte(offset int64) byte {
	return byte(offset%contentModulus + contentBase)
}
