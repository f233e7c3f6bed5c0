package container

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MappedReader provides memory-mapped access to a .pax file. Dataset
// bytes are served from the OS page cache instead of explicit reads,
// which avoids double-buffering large checkpoints.
//
// ReadTree copies dataset bytes out of the mapping, so the returned
// tree stays valid after Close.
type MappedReader struct {
	file       *os.File
	data       mmap.MMap
	meta       NodeMeta
	version    uint32
	flags      uint32
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	closed     bool
}

// OpenMapped opens a memory-mapped container file with default options
// (strict validation).
//
// Important: Always call Close() when done to unmap the file (use defer).
func OpenMapped(path string) (*MappedReader, error) {
	return OpenMappedWithOptions(path, Options{
		ValidationLevel: ValidationStrict,
	})
}

// OpenMappedWithOptions opens a memory-mapped container file with
// custom options.
func OpenMappedWithOptions(path string, opts Options) (*MappedReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpoint loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &MappedReader{
		file: file,
		data: data,
	}

	if err := r.parseHeader(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if err := ValidateTree(&r.meta, r.dataSize, opts.ValidationLevel); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !opts.SkipChecksumValidation {
		computed := ComputeChecksum(r.data[r.dataOffset : r.dataOffset+r.dataSize])
		if err := ValidateChecksum(computed, r.checksum); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	return r, nil
}

// parseHeader parses the fixed header and the CBOR node tree from the
// mapped region.
func (r *MappedReader) parseHeader() error {
	fh, err := parseFixedHeader(r.data)
	if err != nil {
		return err
	}
	r.version = fh.version
	r.flags = fh.flags
	r.checksum = fh.checksum
	r.dataSize = int64(fh.dataSize)
	r.dataOffset = dataSectionOffset(fh.headerSize)

	headerEnd := int64(FixedHeaderSize) + int64(fh.headerSize)
	if headerEnd > int64(len(r.data)) {
		return fmt.Errorf("truncated file: header extends to %d, file is %d bytes", headerEnd, len(r.data))
	}
	if err := decMode.Unmarshal(r.data[FixedHeaderSize:headerEnd], &r.meta); err != nil {
		return fmt.Errorf("failed to parse header CBOR: %w", err)
	}

	if r.dataOffset+r.dataSize > int64(len(r.data)) {
		return fmt.Errorf("truncated file: data section [%d-%d] exceeds file size %d",
			r.dataOffset, r.dataOffset+r.dataSize, len(r.data))
	}

	return nil
}

// Version returns the file's format version.
func (r *MappedReader) Version() uint32 {
	return r.version
}

// Meta returns the parsed header metadata tree.
func (r *MappedReader) Meta() NodeMeta {
	return r.meta
}

// ReadTree materializes the full node tree, copying every dataset's
// bytes out of the mapped region.
func (r *MappedReader) ReadTree() (*Group, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	return buildTree(&r.meta, r.readAt)
}

// readAt copies size bytes at the given data-section offset out of the
// mapping.
func (r *MappedReader) readAt(offset, size int64) ([]byte, error) {
	start := r.dataOffset + offset
	out := make([]byte, size)
	copy(out, r.data[start:start+size])
	return out, nil
}

// Close unmaps the file and closes it.
func (r *MappedReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.data != nil {
		if err := r.data.Unmap(); err != nil {
			firstErr = err
		}
		r.data = nil
	}
	if err := r.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
