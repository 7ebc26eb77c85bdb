// Package segment implements the append-only log-segment format used by a
// single slab: one data file holding length-framed excerpts and one index
// file holding, per excerpt, the byte offset of its frame in the data file.
//
// This is the component spec.md calls the "log segment" library and treats
// as out of scope for the queue's own durability/ordering contract — the
// queue engine only ever calls Start/Commit on a Writer and
// Seek*/Advance/Current on a Reader. Framing, checksums, and index-block
// layout are private to this package, mirrored after the frame-header +
// on-disk offset index split used by the teacher's segment.Reader.
package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const (
	frameHeaderLen = 8 // 4 bytes length + 4 bytes crc32
	indexEntryLen  = 8 // one int64 byte-offset per excerpt
)

var (
	// ErrSegmentFull is returned by StartExcerpt when admitting another
	// excerpt would grow the data file past its configured block size. It is
	// never returned for the first excerpt written to an empty segment.
	ErrSegmentFull = errors.New("segment: full")
	// ErrMessageTooLarge is returned by CommitExcerpt when the written
	// payload exceeds the configured message capacity.
	ErrMessageTooLarge = errors.New("segment: message exceeds capacity")
	// ErrNoExcerpt is returned by Current when the reader is not positioned
	// at an excerpt (before the first successful Advance). Advance itself
	// reports "nothing further committed" as false with a nil error.
	ErrNoExcerpt = errors.New("segment: no excerpt")
	// ErrCorrupt is returned when a frame's checksum does not match its
	// payload, or when the index file length is inconsistent with its
	// record size.
	ErrCorrupt = errors.New("segment: corrupt frame")
)

// ExcerptBuffer is the write cursor handed to a caller's serializer. It
// satisfies io.Writer so serializers can write directly into it.
type ExcerptBuffer struct {
	buf []byte
}

func (b *ExcerptBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Len reports the number of bytes written to the buffer so far.
func (b *ExcerptBuffer) Len() int { return len(b.buf) }

// Writer appends excerpts to a single slab's data+index file pair.
type Writer struct {
	dataPath, indexPath string
	blockSize           int64
	messageCapacity     int64

	dataFile  *os.File
	indexFile *os.File

	dataSize  int64
	nextIndex int32
}

// CreateWriter creates a brand-new, empty data+index file pair.
func CreateWriter(dataPath, indexPath string, blockSize, messageCapacity int64) (*Writer, error) {
	df, err := os.OpenFile(dataPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("segment: create data file: %w", err)
	}
	idxf, err := os.OpenFile(indexPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		df.Close()
		os.Remove(dataPath)
		return nil, fmt.Errorf("segment: create index file: %w", err)
	}
	return &Writer{
		dataPath:        dataPath,
		indexPath:       indexPath,
		blockSize:       blockSize,
		messageCapacity: messageCapacity,
		dataFile:        df,
		indexFile:       idxf,
	}, nil
}

// OpenWriter reopens an existing data+index pair for further appends,
// recovering dataSize and nextIndex from the current file contents.
func OpenWriter(dataPath, indexPath string, blockSize, messageCapacity int64) (*Writer, error) {
	df, err := os.OpenFile(dataPath, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("segment: open data file: %w", err)
	}
	idxf, err := os.OpenFile(indexPath, os.O_RDWR, 0o600)
	if err != nil {
		df.Close()
		return nil, fmt.Errorf("segment: open index file: %w", err)
	}
	dstat, err := df.Stat()
	if err != nil {
		df.Close()
		idxf.Close()
		return nil, err
	}
	istat, err := idxf.Stat()
	if err != nil {
		df.Close()
		idxf.Close()
		return nil, err
	}
	if istat.Size()%indexEntryLen != 0 {
		df.Close()
		idxf.Close()
		return nil, fmt.Errorf("%w: index file size %d not a multiple of %d", ErrCorrupt, istat.Size(), indexEntryLen)
	}
	return &Writer{
		dataPath:        dataPath,
		indexPath:       indexPath,
		blockSize:       blockSize,
		messageCapacity: messageCapacity,
		dataFile:        df,
		indexFile:       idxf,
		dataSize:        dstat.Size(),
		nextIndex:       int32(istat.Size() / indexEntryLen),
	}, nil
}

// StartExcerpt returns a fresh write cursor for the next excerpt, or
// ErrSegmentFull if the segment should be rolled instead. An empty segment
// (dataSize == 0) never refuses, guaranteeing a rollover retry succeeds.
func (w *Writer) StartExcerpt() (*ExcerptBuffer, error) {
	if w.dataSize > 0 && w.dataSize+frameHeaderLen+w.messageCapacity > w.blockSize {
		return nil, ErrSegmentFull
	}
	return &ExcerptBuffer{}, nil
}

// CommitExcerpt durably appends buf as the next excerpt and returns its
// index within this segment.
func (w *Writer) CommitExcerpt(buf *ExcerptBuffer) (int32, error) {
	if int64(len(buf.buf)) > w.messageCapacity {
		return 0, ErrMessageTooLarge
	}

	var hdr [frameHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(buf.buf)))
	binary.LittleEndian.PutUint32(hdr[4:8], crc32.ChecksumIEEE(buf.buf))

	offset := w.dataSize
	if _, err := w.dataFile.WriteAt(hdr[:], offset); err != nil {
		return 0, fmt.Errorf("segment: write frame header: %w", err)
	}
	if len(buf.buf) > 0 {
		if _, err := w.dataFile.WriteAt(buf.buf, offset+frameHeaderLen); err != nil {
			return 0, fmt.Errorf("segment: write frame payload: %w", err)
		}
	}
	if err := w.dataFile.Sync(); err != nil {
		return 0, fmt.Errorf("segment: sync data file: %w", err)
	}

	var off [indexEntryLen]byte
	binary.LittleEndian.PutUint64(off[:], uint64(offset))
	indexOffset := int64(w.nextIndex) * indexEntryLen
	if _, err := w.indexFile.WriteAt(off[:], indexOffset); err != nil {
		return 0, fmt.Errorf("segment: write index entry: %w", err)
	}
	if err := w.indexFile.Sync(); err != nil {
		return 0, fmt.Errorf("segment: sync index file: %w", err)
	}

	idx := w.nextIndex
	w.nextIndex++
	w.dataSize = offset + frameHeaderLen + int64(len(buf.buf))
	return idx, nil
}

// Close releases the writer's file handles.
func (w *Writer) Close() error {
	err1 := w.dataFile.Close()
	err2 := w.indexFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Reader is a sequential tail cursor over a slab's committed excerpts,
// independent of any writer on the same files.
type Reader struct {
	dataFile  *os.File
	indexFile *os.File

	count   int32 // number of committed excerpts visible to this reader
	current int32 // index of the last excerpt read by Current; -1 before the first Advance
}

// OpenReader opens a read-only tailer over dataPath/indexPath.
func OpenReader(dataPath, indexPath string) (*Reader, error) {
	df, err := os.OpenFile(dataPath, os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("segment: open data file for read: %w", err)
	}
	idxf, err := os.OpenFile(indexPath, os.O_RDONLY, 0o600)
	if err != nil {
		df.Close()
		return nil, fmt.Errorf("segment: open index file for read: %w", err)
	}
	r := &Reader{dataFile: df, indexFile: idxf, current: -1}
	if err := r.refreshCount(); err != nil {
		df.Close()
		idxf.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) refreshCount() error {
	istat, err := r.indexFile.Stat()
	if err != nil {
		return err
	}
	if istat.Size()%indexEntryLen != 0 {
		return fmt.Errorf("%w: index file size %d not a multiple of %d", ErrCorrupt, istat.Size(), indexEntryLen)
	}
	r.count = int32(istat.Size() / indexEntryLen)
	return nil
}

// SeekToStart positions the reader before excerpt 0: the next Advance
// yields excerpt 0.
func (r *Reader) SeekToStart() {
	r.current = -1
}

// SeekToIndex positions the reader at index: the next Advance yields
// index+1. Passing -1 is equivalent to SeekToStart.
func (r *Reader) SeekToIndex(index int32) {
	r.current = index
}

// Advance attempts to move to the excerpt following the reader's current
// position, re-checking the on-disk index length first since a writer on
// the same slab (in another process, or the active appender in this one)
// may have committed more excerpts since the reader was opened or last
// advanced. It returns false, nil when there is nothing further committed.
func (r *Reader) Advance() (bool, error) {
	if err := r.refreshCount(); err != nil {
		return false, err
	}
	next := r.current + 1
	if next >= r.count {
		return false, nil
	}
	r.current = next
	return true, nil
}

// Current reads the payload of the excerpt the reader is positioned at,
// along with its index. It must follow a successful Advance.
func (r *Reader) Current() (int32, []byte, error) {
	if r.current < 0 {
		return 0, nil, ErrNoExcerpt
	}
	payload, err := r.readFrame(r.current)
	if err != nil {
		return 0, nil, err
	}
	return r.current, payload, nil
}

func (r *Reader) readFrame(index int32) ([]byte, error) {
	var off [indexEntryLen]byte
	if _, err := r.indexFile.ReadAt(off[:], int64(index)*indexEntryLen); err != nil {
		return nil, fmt.Errorf("segment: read index entry: %w", err)
	}
	offset := int64(binary.LittleEndian.Uint64(off[:]))

	var hdr [frameHeaderLen]byte
	if _, err := r.dataFile.ReadAt(hdr[:], offset); err != nil {
		return nil, fmt.Errorf("segment: read frame header: %w", err)
	}
	length := binary.LittleEndian.Uint32(hdr[0:4])
	wantCRC := binary.LittleEndian.Uint32(hdr[4:8])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := r.dataFile.ReadAt(payload, offset+frameHeaderLen); err != nil && err != io.EOF {
			return nil, fmt.Errorf("segment: read frame payload: %w", err)
		}
	}
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, ErrCorrupt
	}
	return payload, nil
}

// Close releases the reader's file handles.
func (r *Reader) Close() error {
	err1 := r.dataFile.Close()
	err2 := r.indexFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
