// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package snapshot provides the public API of the parameter snapshot
// format: checksummed, 64-byte aligned float64 tensors keyed by
// "<layer index>.<name>".
//
//	header, err := snapshot.Save("model.dnns", net, snapshot.Meta{Model: "mlp"})
//	_, err = snapshot.Load("model.dnns", other)
package snapshot

import (
	"io"

	"github.com/born-ml/dnn/internal/snapshot"
	"github.com/born-ml/dnn/internal/tensor"
)

// Types.
type (
	// Header is the JSON header stored in every file.
	Header = snapshot.Header
	// TensorMeta locates one tensor in the data section.
	TensorMeta = snapshot.TensorMeta
	// Meta is the caller-supplied part of the header.
	Meta = snapshot.Meta
	// Model is anything with a named state, such as *nn.Network.
	Model = snapshot.Model
	// ValidationError reports an inconsistent tensor table.
	ValidationError = snapshot.ValidationError
)

// Errors.
var (
	ErrInvalidMagic       = snapshot.ErrInvalidMagic
	ErrUnsupportedVersion = snapshot.ErrUnsupportedVersion
	ErrChecksumMismatch   = snapshot.ErrChecksumMismatch
	ErrHeaderTooLarge     = snapshot.ErrHeaderTooLarge
)

// Write encodes state to w.
func Write(w io.Writer, state map[string]*tensor.Tensor, meta Meta) (Header, error) {
	return snapshot.Write(w, state, meta)
}

// Read decodes and verifies a snapshot.
func Read(r io.Reader) (map[string]*tensor.Tensor, Header, error) {
	return snapshot.Read(r)
}

// Save writes the state of m to path.
func Save(path string, m Model, meta Meta) (Header, error) {
	return snapshot.Save(path, m, meta)
}

// Load reads path into m, leaving m untouched on any error.
func Load(path string, m Model) (Header, error) {
	return snapshot.Load(path, m)
}
