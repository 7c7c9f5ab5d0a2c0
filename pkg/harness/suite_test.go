package harness

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/marmos91/fscheck/pkg/sut/badger"
	"github.com/marmos91/fscheck/pkg/sut/bolt"
	"github.com/marmos91/fscheck/pkg/sut/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quickOptions keeps runs fast: two sizes, few samples, no delay.
func quickOptions() Options {
	return Options{
		Seed:             42,
		PropagationDelay: 0,
		MinSize:          10,
		MaxSize:          100,
		SizeFactor:       10,
		OffsetSamples:    50,
		ReadBufferSize:   200,
		Backend:          "memory",
	}
}

func newMemoryClient(t *testing.T, delay time.Duration) sut.Client {
	t.Helper()
	store, err := memory.NewMemoryStore(context.Background(), memory.MemoryStoreConfig{CommitDelay: delay})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// statusOf maps "name@size" to the outcome status.
func statusOf(report *Report) map[string]string {
	statuses := make(map[string]string, len(report.Outcomes))
	for _, o := range report.Outcomes {
		key := o.Name
		if o.Size > 0 {
			key += "@" + strconv.Itoa(o.Size)
		}
		statuses[key] = o.Status()
	}
	return statuses
}

// allPassed returns the status map of a fully passing quick run.
func allPassed() map[string]string {
	statuses := map[string]string{}
	for _, c := range fixedCases() {
		statuses[c.name] = "passed"
	}
	for _, size := range []int{10, 100} {
		for _, c := range sizedCases() {
			statuses[c.name+"@"+strconv.Itoa(size)] = "passed"
		}
	}
	return statuses
}

func TestRunStandardTests_PassesOnConformingBackend(t *testing.T) {
	report := RunStandardTests(context.Background(), newMemoryClient(t, 0), quickOptions())

	require.Len(t, report.Outcomes, 8+2*4)
	if diff := cmp.Diff(allPassed(), statusOf(report)); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, report.Failed())
	assert.Equal(t, Summary{Total: 16, Passed: 16}, report.Summary)
	assert.Equal(t, int64(42), report.Seed)
	assert.Equal(t, "memory", report.Backend)
	assert.NotEmpty(t, report.RunID)
}

func TestRunStandardTests_Order(t *testing.T) {
	report := RunStandardTests(context.Background(), newMemoryClient(t, 0), quickOptions())

	var got []string
	for _, o := range report.Outcomes {
		got = append(got, o.Name)
	}
	want := []string{
		CaseMkdirWithSleep, CaseMkdirWithoutSleep, CaseMkdirNotRecursive, CaseMkdirNested,
		CaseRmdir, CaseSmallString, CaseWriteSeekWrite, CaseReadBiggerThanBuffer,
		CaseWriteNBytes, CaseReadByteWithOffset, CaseTruncate, CaseTruncateExistingFile,
		CaseWriteNBytes, CaseReadByteWithOffset, CaseTruncate, CaseTruncateExistingFile,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("case order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10, report.Outcomes[8].Size)
	assert.Equal(t, 100, report.Outcomes[12].Size)
}

func TestRunStandardTests_ConsoleLines(t *testing.T) {
	var out bytes.Buffer
	opts := quickOptions()
	opts.Output = &out
	RunStandardTests(context.Background(), newMemoryClient(t, 0), opts)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, "Testing mkdir with sleep...passed", lines[0])
	assert.Equal(t, "Testing whether mkdir does not make nested dirs...passed", lines[2])
	assert.Equal(t, "Testing writing 10 bytes of data...passed", lines[8])
	assert.Equal(t, "Testing reading a byte with offset 50 times...passed", lines[9])
	assert.Equal(t, "Testing writing 100 bytes of data...passed", lines[12])
}

// ============================================================================
// Fault injection
// ============================================================================

// shortReadClient loses the last byte of every multi-byte read.
type shortReadClient struct {
	sut.Client
}

func (c shortReadClient) ReadAt(ctx context.Context, path string, p []byte, offset int64) (int, error) {
	n, err := c.Client.ReadAt(ctx, path, p, offset)
	if n > 1 {
		n--
	}
	return n, err
}

func TestRunStandardTests_ShortReads(t *testing.T) {
	var out bytes.Buffer
	opts := quickOptions()
	opts.Output = &out
	report := RunStandardTests(context.Background(), shortReadClient{newMemoryClient(t, 0)}, opts)

	want := allPassed()
	for _, name := range []string{CaseSmallString, CaseWriteSeekWrite, CaseReadBiggerThanBuffer, CaseWriteNBytes + "@10", CaseWriteNBytes + "@100"} {
		want[name] = "failed"
	}
	if diff := cmp.Diff(want, statusOf(report)); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, report.Failed())
	assert.Equal(t, 5, report.Summary.Failed)
	for _, o := range report.Outcomes {
		if o.Failed() {
			assert.Equal(t, KindInvariant, o.Kind, o.Name)
		}
	}
	assert.Contains(t, out.String(), "Testing creating a file with a small string...FAILED: ReadAt /bufdir-random-")
}

// recursiveMkdirClient creates missing ancestors, which the contract forbids.
type recursiveMkdirClient struct {
	sut.Client
}

func (c recursiveMkdirClient) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i := 1; i < len(parts); i++ {
		ancestor := "/" + strings.Join(parts[:i], "/")
		if err := c.Client.CreateDirectory(ctx, ancestor, mode); err != nil && !sut.IsAlreadyExists(err) {
			return err
		}
	}
	return c.Client.CreateDirectory(ctx, path, mode)
}

func TestRunStandardTests_RecursiveMkdirIsAnInvariantViolation(t *testing.T) {
	report := RunStandardTests(context.Background(), recursiveMkdirClient{newMemoryClient(t, 0)}, quickOptions())

	want := allPassed()
	want[CaseMkdirNotRecursive] = "failed"
	if diff := cmp.Diff(want, statusOf(report)); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, KindInvariant, report.Outcomes[2].Kind)
}

// panickyClient panics on Truncate.
type panickyClient struct {
	sut.Client
}

func (panickyClient) Truncate(context.Context, string, int64) error {
	panic("truncate exploded")
}

func TestRunStandardTests_RecoversPanics(t *testing.T) {
	report := RunStandardTests(context.Background(), panickyClient{newMemoryClient(t, 0)}, quickOptions())

	want := allPassed()
	want[CaseTruncate+"@10"] = "failed"
	want[CaseTruncate+"@100"] = "failed"
	if diff := cmp.Diff(want, statusOf(report)); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}

	for _, o := range report.Outcomes {
		if o.Failed() {
			assert.Equal(t, KindOperation, o.Kind)
			assert.Contains(t, o.Message, "truncate exploded")
		}
	}
}

// brokenIsDirectoryClient fails every IsDirectory call.
type brokenIsDirectoryClient struct {
	sut.Client
}

func (brokenIsDirectoryClient) IsDirectory(_ context.Context, path string) (bool, error) {
	return false, &sut.StoreError{Code: sut.ErrIOError, Message: "backend unavailable", Path: path}
}

func TestRunStandardTests_OperationErrors(t *testing.T) {
	report := RunStandardTests(context.Background(), brokenIsDirectoryClient{newMemoryClient(t, 0)}, quickOptions())

	for _, name := range []string{CaseMkdirWithSleep, CaseMkdirWithoutSleep, CaseMkdirNotRecursive, CaseMkdirNested, CaseRmdir, CaseSmallString} {
		o := findOutcome(t, report, name, 0)
		assert.True(t, o.Failed(), name)
		assert.Equal(t, KindOperation, o.Kind, name)
		assert.Contains(t, o.Message, "backend unavailable")
	}
	assert.True(t, findOutcome(t, report, CaseWriteSeekWrite, 0).Passed)
}

func findOutcome(t *testing.T, report *Report, name string, size int) TestOutcome {
	t.Helper()
	for _, o := range report.Outcomes {
		if o.Name == name && o.Size == size {
			return o
		}
	}
	t.Fatalf("no outcome for %s@%d", name, size)
	return TestOutcome{}
}

func TestRunStandardTests_DebugLogsOffsetCoverage(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	logger.SetLevel("DEBUG")
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel("INFO")
	})

	report := RunStandardTests(context.Background(), newMemoryClient(t, 0), quickOptions())

	assert.False(t, report.Failed())
	assert.Contains(t, logs.String(), "distinct offsets of 9")
	assert.Contains(t, logs.String(), "distinct offsets of 99")
}

// shiftedByteClient answers single-byte reads from the following offset.
type shiftedByteClient struct {
	sut.Client
}

func (c shiftedByteClient) ReadAt(ctx context.Context, path string, p []byte, offset int64) (int, error) {
	if len(p) == 1 {
		offset++
	}
	return c.Client.ReadAt(ctx, path, p, offset)
}

// noTruncOpenClient ignores O_TRUNC.
type noTruncOpenClient struct {
	sut.Client
}

func (c noTruncOpenClient) Open(ctx context.Context, path string, flags int) (*sut.Handle, error) {
	return c.Client.Open(ctx, path, flags&^os.O_TRUNC)
}

// noopTruncateClient acknowledges Truncate without changing anything.
type noopTruncateClient struct {
	sut.Client
}

func (c noopTruncateClient) Truncate(ctx context.Context, path string, size int64) error {
	return nil
}

func TestRunStandardTests_SizedCaseFaults(t *testing.T) {
	tests := []struct {
		name    string
		wrap    func(sut.Client) sut.Client
		failing string
		message string
	}{
		{
			name:    "shifted single-byte reads",
			wrap:    func(c sut.Client) sut.Client { return shiftedByteClient{c} },
			failing: CaseReadByteWithOffset,
			message: "expected 0x",
		},
		{
			name:    "open ignores O_TRUNC",
			wrap:    func(c sut.Client) sut.Client { return noTruncOpenClient{c} },
			failing: CaseTruncateExistingFile,
			message: "expected 0",
		},
		{
			name:    "truncate is a no-op",
			wrap:    func(c sut.Client) sut.Client { return noopTruncateClient{c} },
			failing: CaseTruncate,
			message: "expected 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := RunStandardTests(context.Background(), tt.wrap(newMemoryClient(t, 0)), quickOptions())

			want := allPassed()
			want[tt.failing+"@10"] = "failed"
			want[tt.failing+"@100"] = "failed"
			if diff := cmp.Diff(want, statusOf(report)); diff != "" {
				t.Errorf("outcome mismatch (-want +got):\n%s", diff)
			}

			for _, size := range []int{10, 100} {
				o := findOutcome(t, report, tt.failing, size)
				assert.Equal(t, KindInvariant, o.Kind)
				assert.Contains(t, o.Message, tt.message)
			}
		})
	}
}

// ============================================================================
// Propagation delay
// ============================================================================

func TestRunStandardTests_PropagationDelay(t *testing.T) {
	opts := quickOptions()
	opts.MaxSize = 10
	opts.PropagationDelay = 150 * time.Millisecond

	report := RunStandardTests(context.Background(), newMemoryClient(t, 50*time.Millisecond), opts)

	assert.True(t, findOutcome(t, report, CaseMkdirWithSleep, 0).Passed, "waiting longer than the commit delay must pass")

	without := findOutcome(t, report, CaseMkdirWithoutSleep, 0)
	assert.True(t, without.Failed(), "immediate check must see the directory missing")
	assert.Equal(t, KindInvariant, without.Kind)

	assert.True(t, findOutcome(t, report, CaseWriteNBytes, 10).Passed, "write_n_bytes waits before reading back")
}

// ============================================================================
// Skipping and cancellation
// ============================================================================

func TestRunStandardTests_Skip(t *testing.T) {
	opts := quickOptions()
	opts.Skip = []string{CaseRmdir, CaseTruncate}

	report := RunStandardTests(context.Background(), newMemoryClient(t, 0), opts)

	want := allPassed()
	want[CaseRmdir] = "skipped"
	want[CaseTruncate+"@10"] = "skipped"
	want[CaseTruncate+"@100"] = "skipped"
	if diff := cmp.Diff(want, statusOf(report)); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, report.Failed())
	assert.Equal(t, 3, report.Summary.Skipped)
}

func TestRunStandardTests_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := RunStandardTests(ctx, newMemoryClient(t, 0), quickOptions())

	assert.Equal(t, Summary{Total: 16, Skipped: 16}, report.Summary)
	assert.False(t, report.Failed())
}

// cancellingClient cancels the run right after the first RemoveDirectory.
type cancellingClient struct {
	sut.Client
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancellingClient) RemoveDirectory(ctx context.Context, path string) error {
	err := c.Client.RemoveDirectory(ctx, path)
	c.once.Do(c.cancel)
	return err
}

func TestRunStandardTests_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &cancellingClient{Client: newMemoryClient(t, 0), cancel: cancel}
	report := RunStandardTests(ctx, client, quickOptions())

	for i, o := range report.Outcomes {
		if i < 4 {
			assert.True(t, o.Passed, o.Name)
			continue
		}
		assert.True(t, o.Skipped, "%s should be skipped after cancellation", o.Name)
	}
	assert.False(t, report.Failed())
}

// ============================================================================
// Seeding
// ============================================================================

// recordingClient remembers every directory it was asked to create.
type recordingClient struct {
	sut.Client
	dirs []string
}

func (c *recordingClient) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	c.dirs = append(c.dirs, path)
	return c.Client.CreateDirectory(ctx, path, mode)
}

func TestRunStandardTests_SeedReproducesPaths(t *testing.T) {
	first := &recordingClient{Client: newMemoryClient(t, 0)}
	second := &recordingClient{Client: newMemoryClient(t, 0)}

	RunStandardTests(context.Background(), first, quickOptions())
	RunStandardTests(context.Background(), second, quickOptions())

	require.NotEmpty(t, first.dirs)
	if diff := cmp.Diff(first.dirs, second.dirs); diff != "" {
		t.Errorf("same seed produced different paths (-first +second):\n%s", diff)
	}
}

func TestRunStandardTests_ZeroSeedIsRecorded(t *testing.T) {
	opts := quickOptions()
	opts.Seed = 0
	opts.MaxSize = 10

	report := RunStandardTests(context.Background(), newMemoryClient(t, 0), opts)
	assert.NotZero(t, report.Seed)
}

func TestRunStandardTests_RerunOnSameBackend(t *testing.T) {
	client := newMemoryClient(t, 0)
	opts := quickOptions()

	RunStandardTests(context.Background(), client, opts)
	opts.Seed = 43
	report := RunStandardTests(context.Background(), client, opts)

	assert.False(t, report.Failed(), "a second run with another seed must not collide with leftovers")
}

// ============================================================================
// Full-size runs
// ============================================================================

func TestRunStandardTests_DefaultSizes(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size run")
	}

	tests := []struct {
		name   string
		client func(t *testing.T) sut.Client
	}{
		{
			name:   "memory",
			client: func(t *testing.T) sut.Client { return newMemoryClient(t, 0) },
		},
		{
			name: "bolt",
			client: func(t *testing.T) sut.Client {
				store, err := bolt.NewBoltStore(context.Background(), bolt.BoltStoreConfig{
					Path: filepath.Join(t.TempDir(), "sizes.db"),
				})
				require.NoError(t, err)
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
		{
			name: "badger",
			client: func(t *testing.T) sut.Client {
				store, err := badger.NewBadgerStore(context.Background(), badger.BadgerStoreConfig{InMemory: true})
				require.NoError(t, err)
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Seed = 7
			opts.PropagationDelay = 0
			opts.OffsetSamples = 500

			report := RunStandardTests(context.Background(), tt.client(t), opts)

			require.Len(t, report.Outcomes, 8+6*4)
			for _, o := range report.Outcomes {
				assert.True(t, o.Passed, "%s (size %d): %s", o.Name, o.Size, o.Message)
			}
			assert.Equal(t, DefaultMaxSize, report.Outcomes[len(report.Outcomes)-1].Size)
			assert.Equal(t, Summary{Total: 32, Passed: 32}, report.Summary)
		})
	}
}
