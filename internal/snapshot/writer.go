package snapshot

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/born-ml/dnn/internal/tensor"
	"github.com/google/uuid"
)

// Write encodes state to w. Tensors are stored in name order. The returned
// header is the one written, including the generated run ID.
func Write(w io.Writer, state map[string]*tensor.Tensor, meta Meta) (Header, error) {
	header := Header{
		FormatVersion: FormatVersion,
		RunID:         meta.RunID,
		CreatedAt:     time.Now().UTC(),
		Model:         meta.Model,
		Tensors:       make([]TensorMeta, 0, len(state)),
		Metadata:      meta.Metadata,
	}
	if header.RunID == "" {
		header.RunID = uuid.NewString()
	}

	names := slices.Sorted(maps.Keys(state))
	var offset int64
	for _, name := range names {
		if err := validateName(name); err != nil {
			return Header{}, err
		}
		t := state[name]
		size := int64(t.NumElements()) * elemSize
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			Shape:  []int(t.Shape().Clone()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}

	data := make([]byte, 0, offset)
	for _, name := range names {
		for _, v := range state[name].Data() {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}
	checksum := sha256.Sum256(data)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return Header{}, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	var flags uint32
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	pad := padding(int64(FixedHeaderSize + len(headerJSON)))
	for _, chunk := range [][]byte{fixed, headerJSON, make([]byte, pad), data} {
		if _, err := w.Write(chunk); err != nil {
			return Header{}, fmt.Errorf("snapshot: write: %w", err)
		}
	}
	return header, nil
}

// Save writes the state of m to path, replacing any existing file.
func Save(path string, m Model, meta Meta) (Header, error) {
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Create(path)
	if err != nil {
		return Header{}, fmt.Errorf("snapshot: create: %w", err)
	}
	bw := bufio.NewWriter(f)
	header, err := Write(bw, m.StateDict(), meta)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Header{}, err
	}
	return header, nil
}
