package segment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronicleq/blockingqueue/internal/segment"
)

func paths(dir string) (string, string) {
	return filepath.Join(dir, "q-1.data"), filepath.Join(dir, "q-1.index")
}

func TestWriterFirstExcerptNeverRefusesOnEmptySegment(t *testing.T) {
	dir := t.TempDir()
	dp, ip := paths(dir)

	w, err := segment.CreateWriter(dp, ip, 8, 4096)
	require.NoError(t, err)
	defer w.Close()

	buf, err := w.StartExcerpt()
	require.NoError(t, err, "the first excerpt on an empty segment must never be refused, even if block size is tiny")
	_, err = buf.Write([]byte("0123456789"))
	require.NoError(t, err)

	idx, err := w.CommitExcerpt(buf)
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)
}

func TestWriterReportsSegmentFullOnSecondExcerpt(t *testing.T) {
	dir := t.TempDir()
	dp, ip := paths(dir)

	w, err := segment.CreateWriter(dp, ip, 16, 4096)
	require.NoError(t, err)
	defer w.Close()

	buf, err := w.StartExcerpt()
	require.NoError(t, err)
	_, err = buf.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	_, err = w.CommitExcerpt(buf)
	require.NoError(t, err)

	_, err = w.StartExcerpt()
	require.ErrorIs(t, err, segment.ErrSegmentFull)
}

func TestCommitExcerptRejectsOversizedMessage(t *testing.T) {
	dir := t.TempDir()
	dp, ip := paths(dir)

	w, err := segment.CreateWriter(dp, ip, 1<<20, 4)
	require.NoError(t, err)
	defer w.Close()

	buf, err := w.StartExcerpt()
	require.NoError(t, err)
	_, err = buf.Write([]byte("too long"))
	require.NoError(t, err)

	_, err = w.CommitExcerpt(buf)
	require.ErrorIs(t, err, segment.ErrMessageTooLarge)
}

func TestReaderSeesWriterAppendsAcrossOpenFiles(t *testing.T) {
	dir := t.TempDir()
	dp, ip := paths(dir)

	w, err := segment.CreateWriter(dp, ip, 1<<20, 4096)
	require.NoError(t, err)
	defer w.Close()

	r, err := segment.OpenReader(dp, ip)
	require.NoError(t, err)
	defer r.Close()

	advanced, err := r.Advance()
	require.NoError(t, err)
	require.False(t, advanced, "reader must see nothing before the writer commits")

	buf, err := w.StartExcerpt()
	require.NoError(t, err)
	_, _ = buf.Write([]byte("hello"))
	_, err = w.CommitExcerpt(buf)
	require.NoError(t, err)

	advanced, err = r.Advance()
	require.NoError(t, err)
	require.True(t, advanced, "reader re-stats the index file and must see the new commit")

	idx, data, err := r.Current()
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)
	require.Equal(t, "hello", string(data))
}

func TestReaderDetectsCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	dp, ip := paths(dir)

	w, err := segment.CreateWriter(dp, ip, 1<<20, 4096)
	require.NoError(t, err)
	buf, err := w.StartExcerpt()
	require.NoError(t, err)
	_, _ = buf.Write([]byte("intact"))
	_, err = w.CommitExcerpt(buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Flip a payload byte without touching the stored checksum.
	f, err := os.OpenFile(dp, os.O_RDWR, 0o600)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{'X'}, 8) // first payload byte follows the 8-byte frame header
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := segment.OpenReader(dp, ip)
	require.NoError(t, err)
	defer r.Close()

	advanced, err := r.Advance()
	require.NoError(t, err)
	require.True(t, advanced)

	_, _, err = r.Current()
	require.ErrorIs(t, err, segment.ErrCorrupt)
}

func TestOpenWriterRecoversAppendPosition(t *testing.T) {
	dir := t.TempDir()
	dp, ip := paths(dir)

	w, err := segment.CreateWriter(dp, ip, 1<<20, 4096)
	require.NoError(t, err)
	buf, err := w.StartExcerpt()
	require.NoError(t, err)
	_, _ = buf.Write([]byte("first"))
	_, err = w.CommitExcerpt(buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := segment.OpenWriter(dp, ip, 1<<20, 4096)
	require.NoError(t, err)
	defer w2.Close()

	buf2, err := w2.StartExcerpt()
	require.NoError(t, err)
	_, _ = buf2.Write([]byte("second"))
	idx, err := w2.CommitExcerpt(buf2)
	require.NoError(t, err)
	require.EqualValues(t, 1, idx, "reopened writer must continue numbering after the recovered excerpt")
}
