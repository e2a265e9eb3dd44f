// Package snapshot saves and restores a network's named parameters and
// buffers.
//
//	Layout:
//	  0x00  [4 bytes]  magic "DNNS"
//	  0x04  [uint32]   format version
//	  0x08  [uint32]   flags
//	  0x0C  [uint32]   reserved
//	  0x10  [uint64]   header size
//	  0x18  [uint64]   data size
//	  0x20  [32 bytes] SHA-256 of the data section
//	  0x40  JSON header, zero padded to a 64-byte boundary
//	        tensor data, little-endian float64, in header order
//
// All integers are little-endian.
//
// Example:
//
//	if _, err := snapshot.Save("model.dnns", net, snapshot.Meta{Model: "mlp"}); err != nil {
//	    log.Fatal(err)
//	}
//	hdr, err := snapshot.Load("model.dnns", net)
package snapshot
