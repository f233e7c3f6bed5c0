package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/nirum/pax/internal/tensor"
)

// Options configures the behavior of Reader and MappedReader.
type Options struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Reader reads a container tree from a .pax file.
type Reader struct {
	file       *os.File
	meta       NodeMeta
	version    uint32
	flags      uint32
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	opts       Options
	closed     bool
}

// fixedHeader holds the parsed 64-byte fixed header.
type fixedHeader struct {
	version    uint32
	flags      uint32
	headerSize uint64
	dataSize   uint64
	checksum   [32]byte
}

// parseFixedHeader parses the 64-byte fixed header.
func parseFixedHeader(b []byte) (fixedHeader, error) {
	var fh fixedHeader

	if len(b) < FixedHeaderSize {
		return fh, fmt.Errorf("file too small for fixed header: %d bytes", len(b))
	}
	if string(b[0:4]) != MagicBytes {
		return fh, ErrInvalidMagic
	}

	fh.version = binary.LittleEndian.Uint32(b[4:8])
	if fh.version != FormatVersion {
		return fh, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, fh.version, FormatVersion)
	}

	fh.flags = binary.LittleEndian.Uint32(b[8:12])
	fh.headerSize = binary.LittleEndian.Uint64(b[16:24])
	fh.dataSize = binary.LittleEndian.Uint64(b[24:32])
	copy(fh.checksum[:], b[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if fh.headerSize > MaxHeaderSize {
		return fh, ErrHeaderTooLarge
	}

	return fh, nil
}

// dataSectionOffset returns the file offset of the data section for a
// given header size, accounting for alignment padding.
func dataSectionOffset(headerSize uint64) int64 {
	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	return currentPos + padding
}

// Open opens a container file with default options (strict validation).
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, Options{
		ValidationLevel: ValidationStrict,
	})
}

// OpenWithOptions opens a container file with custom options. The
// header is parsed, validated, and checksummed before Open returns;
// on any failure the underlying file is closed.
func OpenWithOptions(path string, opts Options) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for checkpoint loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{
		file: file,
		opts: opts,
	}

	if err := r.parseHeader(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if err := ValidateTree(&r.meta, r.dataSize, opts.ValidationLevel); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !opts.SkipChecksumValidation {
		if err := r.validateChecksum(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return r, nil
}

// parseHeader reads and parses the fixed header and the CBOR node tree.
func (r *Reader) parseHeader() error {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}

	fh, err := parseFixedHeader(fixed)
	if err != nil {
		return err
	}
	r.version = fh.version
	r.flags = fh.flags
	r.checksum = fh.checksum
	r.dataSize = int64(fh.dataSize)
	r.dataOffset = dataSectionOffset(fh.headerSize)

	headerBytes := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if err := decMode.Unmarshal(headerBytes, &r.meta); err != nil {
		return fmt.Errorf("failed to parse header CBOR: %w", err)
	}

	// The recorded data size must fit inside the file.
	fileInfo, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if r.dataOffset+r.dataSize > fileInfo.Size() {
		return fmt.Errorf("truncated file: data section [%d-%d] exceeds file size %d",
			r.dataOffset, r.dataOffset+r.dataSize, fileInfo.Size())
	}

	return nil
}

// validateChecksum reads the data section and compares its SHA-256
// against the stored checksum.
func (r *Reader) validateChecksum() error {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to data section: %w", err)
	}
	computed, err := ComputeChecksumReader(io.LimitReader(r.file, r.dataSize))
	if err != nil {
		return fmt.Errorf("failed to read data section for checksum: %w", err)
	}
	return ValidateChecksum(computed, r.checksum)
}

// Version returns the file's format version.
func (r *Reader) Version() uint32 {
	return r.version
}

// Meta returns the parsed header metadata tree.
func (r *Reader) Meta() NodeMeta {
	return r.meta
}

// ReadTree materializes the full node tree, reading every dataset's
// bytes from the data section.
func (r *Reader) ReadTree() (*Group, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	return buildTree(&r.meta, r.readAt)
}

// readAt reads size bytes at the given data-section offset.
func (r *Reader) readAt(offset, size int64) ([]byte, error) {
	if _, err := r.file.Seek(r.dataOffset+offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to dataset: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return data, nil
}

// Close closes the reader and the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// buildTree reconstructs an in-memory Group/Dataset tree from header
// metadata, fetching dataset bytes through readAt.
func buildTree(meta *NodeMeta, readAt func(offset, size int64) ([]byte, error)) (*Group, error) {
	g := &Group{
		name:     meta.Name,
		attrs:    make(map[string]string),
		children: make(map[string]Node),
	}
	for k, v := range meta.Attrs {
		g.attrs[k] = v
	}

	for i := range meta.Children {
		child := &meta.Children[i]
		switch child.Kind {
		case KindGroup:
			sub, err := buildTree(child, readAt)
			if err != nil {
				return nil, err
			}
			g.names = append(g.names, child.Name)
			g.children[child.Name] = sub

		case KindDataset:
			raw, err := readDataset(child, readAt)
			if err != nil {
				return nil, fmt.Errorf("dataset %q: %w", child.Name, err)
			}
			g.names = append(g.names, child.Name)
			g.children[child.Name] = &Dataset{name: child.Name, raw: raw}

		default:
			return nil, fmt.Errorf("node %q: unknown kind %q", child.Name, child.Kind)
		}
	}

	return g, nil
}

// readDataset materializes one dataset as a RawTensor.
func readDataset(meta *NodeMeta, readAt func(offset, size int64) ([]byte, error)) (*tensor.RawTensor, error) {
	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("unsupported dtype %q", meta.DType)
	}

	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate array: %w", err)
	}
	if int64(raw.ByteSize()) != meta.Size {
		return nil, fmt.Errorf("size %d does not match shape %v dtype %s (%d bytes)",
			meta.Size, shape, dtype, raw.ByteSize())
	}

	data, err := readAt(meta.Offset, meta.Size)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), data)

	return raw, nil
}
