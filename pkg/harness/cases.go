package harness

import (
	"fmt"
	"os"

	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut"
)

// Case names, in execution order.
const (
	CaseMkdirWithSleep       = "mkdir_with_sleep"
	CaseMkdirWithoutSleep    = "mkdir_without_sleep"
	CaseMkdirNotRecursive    = "mkdir_not_recursive"
	CaseMkdirNested          = "mkdir_nested"
	CaseRmdir                = "rmdir"
	CaseSmallString          = "small_string"
	CaseWriteSeekWrite       = "write_seek_write"
	CaseReadBiggerThanBuffer = "read_bigger_than_buffer"
	CaseWriteNBytes          = "write_n_bytes"
	CaseReadByteWithOffset   = "read_byte_with_offset"
	CaseTruncate             = "truncate"
	CaseTruncateExistingFile = "truncate_existing_file"
)

const (
	smallString = "this is a string"
	seekFirst   = "it was the best of times"
	seekSecond  = "it was the worst of times"
	seekOffset  = 100

	// nestedTail is appended to a fresh, never-created first component.
	nestedTail = "/b/c/d/e/f/g"
)

// testCase is one entry of the battery. Sized cases run once per
// escalation size; run receives 0 for the others.
type testCase struct {
	name        string
	sized       bool
	description func(s *suite, size int) string
	run         func(s *suite, size int) error
}

func fixed(text string) func(*suite, int) string {
	return func(*suite, int) string { return text }
}

// fixedCases run once, in this order, before the sized cases.
func fixedCases() []testCase {
	return []testCase{
		{name: CaseMkdirWithSleep, description: fixed("Testing mkdir with sleep..."), run: (*suite).mkdirWithSleep},
		{name: CaseMkdirWithoutSleep, description: fixed("Testing mkdir without sleep..."), run: (*suite).mkdirWithoutSleep},
		{name: CaseMkdirNotRecursive, description: fixed("Testing whether mkdir does not make nested dirs..."), run: (*suite).mkdirNotRecursive},
		{name: CaseMkdirNested, description: fixed("Testing mkdir to make nested dirs one at a time..."), run: (*suite).mkdirNested},
		{name: CaseRmdir, description: fixed("Testing rmdir..."), run: (*suite).rmdir},
		{name: CaseSmallString, description: fixed("Testing creating a file with a small string..."), run: (*suite).smallString},
		{name: CaseWriteSeekWrite, description: fixed("Testing write/seek/write..."), run: (*suite).writeSeekWrite},
		{name: CaseReadBiggerThanBuffer, description: fixed("Testing reading while requesting more bytes than will fit in the buffer..."), run: (*suite).readBiggerThanBuffer},
	}
}

// sizedCases run in this order for every escalation size.
func sizedCases() []testCase {
	return []testCase{
		{
			name:  CaseWriteNBytes,
			sized: true,
			description: func(_ *suite, size int) string {
				return fmt.Sprintf("Testing writing %d bytes of data...", size)
			},
			run: (*suite).writeNBytes,
		},
		{
			name:  CaseReadByteWithOffset,
			sized: true,
			description: func(s *suite, _ int) string {
				return fmt.Sprintf("Testing reading a byte with offset %d times...", s.opts.OffsetSamples)
			},
			run: (*suite).readByteWithOffset,
		},
		{name: CaseTruncate, sized: true, description: fixed("Testing truncating..."), run: (*suite).truncate},
		{name: CaseTruncateExistingFile, sized: true, description: fixed("Testing opening existing file truncation..."), run: (*suite).truncateExistingFile},
	}
}

// CaseNames lists every case name in execution order (sized cases once).
func CaseNames() []string {
	var names []string
	for _, c := range append(fixedCases(), sizedCases()...) {
		names = append(names, c.name)
	}
	return names
}

// ============================================================================
// Directory cases
// ============================================================================

func (s *suite) mkdirWithSleep(int) error {
	for range 2 {
		p, err := s.namer.MakePath("mkdir-with-sleep")
		if err != nil {
			return err
		}
		if err := mkdir(s.ctx, s.client, p); err != nil {
			return err
		}
		if err := s.propagate(); err != nil {
			return err
		}
		if err := expectDirectory(s.ctx, s.client, p, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *suite) mkdirWithoutSleep(int) error {
	p, err := s.namer.MakePath("mkdir-without-sleep")
	if err != nil {
		return err
	}
	if err := mkdir(s.ctx, s.client, p); err != nil {
		return err
	}
	return expectDirectory(s.ctx, s.client, p, true)
}

// mkdirNotRecursive asks for a deep path whose ancestors do not exist.
// Refusing with NotFound or NotDirectory is the expected answer; accepting
// the call is tolerated as long as nothing shows up.
func (s *suite) mkdirNotRecursive(int) error {
	first, err := s.namer.MakePath("a")
	if err != nil {
		return err
	}
	p := first + nestedTail

	err = s.client.CreateDirectory(s.ctx, p, 0o777)
	if err != nil && !sut.IsNotFound(err) && !sut.IsNotDirectory(err) {
		return operationError("CreateDirectory", p, err)
	}

	if err := expectDirectory(s.ctx, s.client, p, false); err != nil {
		return err
	}
	return expectDirectory(s.ctx, s.client, first, false)
}

func (s *suite) mkdirNested(int) error {
	base, err := s.namer.MakePath("test")
	if err != nil {
		return err
	}

	for _, p := range []string{base, base + "/1", base + "/1/2"} {
		if err := mkdir(s.ctx, s.client, p); err != nil {
			return err
		}
		if err := expectDirectory(s.ctx, s.client, p, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *suite) rmdir(int) error {
	p, err := s.namer.MakePath("mkdir-to-rmdir")
	if err != nil {
		return err
	}
	if err := mkdir(s.ctx, s.client, p); err != nil {
		return err
	}
	if err := expectDirectory(s.ctx, s.client, p, true); err != nil {
		return err
	}
	if err := s.client.RemoveDirectory(s.ctx, p); err != nil {
		return operationError("RemoveDirectory", p, err)
	}
	return expectDirectory(s.ctx, s.client, p, false)
}

// ============================================================================
// File cases
// ============================================================================

func (s *suite) smallString(int) error {
	dir, err := s.namer.MakePath("bufdir")
	if err != nil {
		return err
	}
	if err := mkdir(s.ctx, s.client, dir); err != nil {
		return err
	}

	p := dir + "/file"
	if err := write(s.ctx, s.client, p, []byte(smallString), 0); err != nil {
		return err
	}
	if err := expectDirectory(s.ctx, s.client, p, false); err != nil {
		return err
	}

	got, err := read(s.ctx, s.client, p, s.opts.ReadBufferSize, 0)
	if err != nil {
		return err
	}
	return expectBytes("ReadAt", p, got, []byte(smallString))
}

// writeSeekWrite writes two strings with a hole between them and checks
// the size, both strings and the zero-filled hole.
func (s *suite) writeSeekWrite(int) error {
	p, err := s.namer.MakePath("skipwrite")
	if err != nil {
		return err
	}

	if err := write(s.ctx, s.client, p, []byte(seekFirst), 0); err != nil {
		return err
	}
	if err := write(s.ctx, s.client, p, []byte(seekSecond), seekOffset); err != nil {
		return err
	}
	if err := expectSize(s.ctx, s.client, p, int64(seekOffset+len(seekSecond))); err != nil {
		return err
	}

	got, err := read(s.ctx, s.client, p, len(seekFirst), 0)
	if err != nil {
		return err
	}
	if err := expectBytes("ReadAt", p, got, []byte(seekFirst)); err != nil {
		return err
	}

	hole := seekOffset - len(seekFirst)
	got, err = read(s.ctx, s.client, p, hole, int64(len(seekFirst)))
	if err != nil {
		return err
	}
	if err := expectBytes("ReadAt", p, got, make([]byte, hole)); err != nil {
		return err
	}

	got, err = read(s.ctx, s.client, p, len(seekSecond), seekOffset)
	if err != nil {
		return err
	}
	return expectBytes("ReadAt", p, got, []byte(seekSecond))
}

// readBiggerThanBuffer reads one buffer's worth from the middle of a file
// four buffers long; the SUT must fill the buffer and not overrun it.
func (s *suite) readBiggerThanBuffer(int) error {
	bufSize := s.opts.ReadBufferSize
	p, err := s.namer.MakePath("read_bigger_than_buffer")
	if err != nil {
		return err
	}
	if err := createTestFile(s.ctx, s.client, p, 4*bufSize); err != nil {
		return err
	}

	got, err := read(s.ctx, s.client, p, bufSize, int64(bufSize))
	if err != nil {
		return err
	}
	if err := expectCount("ReadAt", p, len(got), bufSize); err != nil {
		return err
	}
	return expectBytes("ReadAt", p, got, Generate(2*bufSize)[bufSize:])
}

// ============================================================================
// Sized cases
// ============================================================================

func (s *suite) writeNBytes(size int) error {
	p, err := s.namer.MakePath("write_n_bytes")
	if err != nil {
		return err
	}

	want := GenerateString(size)
	if err := write(s.ctx, s.client, p, want, 0); err != nil {
		return err
	}
	if err := s.propagate(); err != nil {
		return err
	}

	got, err := read(s.ctx, s.client, p, size, 0)
	if err != nil {
		return err
	}
	return expectBytes("ReadAt", p, got, want)
}

func (s *suite) readByteWithOffset(size int) error {
	if size < 2 {
		return setupError("ReadAt", "", "size %d leaves no offsets to sample", size)
	}
	p, err := s.namer.MakePath("read_byte_with_offset")
	if err != nil {
		return err
	}
	if err := createTestFile(s.ctx, s.client, p, size); err != nil {
		return err
	}

	// Distinct offsets are only tracked for the debug log.
	var seen map[int64]struct{}
	if logger.IsDebug() {
		seen = make(map[int64]struct{}, s.opts.OffsetSamples)
	}

	buf := make([]byte, 1)
	for range s.opts.OffsetSamples {
		offset := sampleOffset(s.rng, size)
		if seen != nil {
			seen[offset] = struct{}{}
		}
		n, err := s.client.ReadAt(s.ctx, p, buf, offset)
		if err != nil {
			return operationError("ReadAt", p, err)
		}
		if n != 1 {
			return invariantError("ReadAt", p, "read %d bytes at offset %d, expected 1", n, offset)
		}
		if want := OffsetByte(offset); buf[0] != want {
			return invariantError("ReadAt", p, "byte at offset %d is 0x%02x, expected 0x%02x", offset, buf[0], want)
		}
	}

	if seen != nil {
		logger.Debug("harness: %s sampled %d distinct offsets of %d", p, len(seen), size-1)
	}
	return nil
}

// truncate shrinks a fixture to zero twice; the second call must be a no-op.
func (s *suite) truncate(size int) error {
	p, err := s.namer.MakePath("truncate")
	if err != nil {
		return err
	}
	if err := createTestFile(s.ctx, s.client, p, size); err != nil {
		return err
	}
	if err := expectSize(s.ctx, s.client, p, int64(size)); err != nil {
		return err
	}

	for range 2 {
		if err := s.client.Truncate(s.ctx, p, 0); err != nil {
			return operationError("Truncate", p, err)
		}
		if err := expectSize(s.ctx, s.client, p, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *suite) truncateExistingFile(size int) error {
	p, err := s.namer.MakePath("truncate")
	if err != nil {
		return err
	}
	if err := createTestFile(s.ctx, s.client, p, size); err != nil {
		return err
	}
	if err := expectSize(s.ctx, s.client, p, int64(size)); err != nil {
		return err
	}

	if _, err := s.client.Open(s.ctx, p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC); err != nil {
		return operationError("Open", p, err)
	}
	return expectSize(s.ctx, s.client, p, 0)
}
