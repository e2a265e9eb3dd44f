package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/dnn/internal/tensor"
)

// Limits applied when reading.
const (
	MaxHeaderSize    = 16 << 20
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 1024
)

// validateName rejects empty, oversized and control-character names.
func validateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name[:32] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}

// validateTensors checks names, shapes and byte ranges of the tensor table
// against a data section of dataSize bytes.
func validateTensors(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	seen := make(map[string]struct{}, len(tensors))
	for _, t := range tensors {
		if err := validateName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return &ValidationError{Type: "duplicate_name", Tensor: t.Name, Tensor2: t.Name, Details: "name appears twice"}
		}
		seen[t.Name] = struct{}{}

		shape := tensor.Shape(t.Shape)
		if err := shape.Validate(); err != nil {
			return &ValidationError{Type: "invalid_shape", Tensor: t.Name, Details: err.Error()}
		}
		elems, ok := elementCount(shape, dataSize/elemSize)
		if !ok {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v does not fit in %d data bytes", shape, dataSize),
			}
		}
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if want := elems * elemSize; t.Size != want {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", shape, want, t.Size),
			}
		}
		// Offset+Size may overflow int64, so compare against the remainder.
		if t.Offset > dataSize || t.Size > dataSize-t.Offset {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data size %d", t.Offset, t.Size, dataSize),
			}
		}
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int { return cmp.Compare(a.Offset, b.Offset) })
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.Offset+prev.Size > next.Offset {
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  prev.Name,
				Tensor2: next.Name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
					prev.Offset, prev.Offset+prev.Size, next.Offset, next.Offset+next.Size),
			}
		}
	}
	return nil
}

// elementCount multiplies the dimensions of shape, failing as soon as the
// product exceeds limit.
func elementCount(shape tensor.Shape, limit int64) (int64, bool) {
	n := int64(1)
	for _, d := range shape {
		if int64(d) > limit || (d > 0 && n > limit/int64(d)) {
			return 0, false
		}
		n *= int64(d)
	}
	return n, true
}
