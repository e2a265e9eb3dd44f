package snapshot

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/dnn/internal/tensor"
)

// Read decodes a snapshot from r, verifying the checksum and the tensor
// table before any tensor is built.
func Read(r io.Reader) (map[string]*tensor.Tensor, Header, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, Header{}, fmt.Errorf("snapshot: read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, Header{}, fmt.Errorf("%w: got %q", ErrInvalidMagic, fixed[0:4])
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, Header{}, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, Header{}, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}
	if dataSize > math.MaxInt32*elemSize {
		return nil, Header{}, &ValidationError{Type: "data_too_large", Details: fmt.Sprintf("%d bytes", dataSize)}
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, Header{}, fmt.Errorf("snapshot: read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, Header{}, fmt.Errorf("snapshot: parse header: %w", err)
	}

	pad := padding(FixedHeaderSize + int64(headerSize))
	if _, err := io.CopyN(io.Discard, r, pad); err != nil {
		return nil, Header{}, fmt.Errorf("snapshot: read padding: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, Header{}, fmt.Errorf("snapshot: read data: %w", err)
	}
	if sha256.Sum256(data) != stored {
		return nil, Header{}, ErrChecksumMismatch
	}
	if err := validateTensors(header.Tensors, int64(dataSize)); err != nil {
		return nil, Header{}, err
	}

	state := make(map[string]*tensor.Tensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		t := tensor.New(tensor.Shape(meta.Shape).Clone())
		raw := data[meta.Offset : meta.Offset+meta.Size]
		for i := range t.Data() {
			t.Data()[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*elemSize:]))
		}
		state[meta.Name] = t
	}
	return state, header, nil
}

// Load reads the snapshot at path into m. m is left untouched if the file
// is invalid or does not match its state layout.
func Load(path string, m Model) (Header, error) {
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("snapshot: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	state, header, err := Read(bufio.NewReader(f))
	if err != nil {
		return Header{}, err
	}
	if err := m.LoadStateDict(state); err != nil {
		return Header{}, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	return header, nil
}
