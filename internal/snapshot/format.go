package snapshot

import (
	"time"

	"github.com/born-ml/dnn/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "DNNS"
	FormatVersion   = 1
	Alignment       = 64   // tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // bytes before the JSON header
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // checksum position in the fixed header
	elemSize        = 8    // float64
)

// Flags.
const (
	FlagHasMetadata uint32 = 1 << 0
)

// Header is the JSON header of a snapshot file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	RunID         string            `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Model         string            `json:"model"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta locates one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"` // e.g. "0.weight"
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// Meta is the caller-supplied part of the header.
type Meta struct {
	Model    string
	RunID    string // generated when empty
	Metadata map[string]string
}

// Model is anything with a named state, such as *nn.Network.
type Model interface {
	StateDict() map[string]*tensor.Tensor
	LoadStateDict(map[string]*tensor.Tensor) error
}

func padding(pos int64) int64 {
	return (Alignment - pos%Alignment) % Alignment
}
