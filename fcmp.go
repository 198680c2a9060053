// Package fcmp provides context-mixing arithmetic-coding compression of
// arbitrary byte streams.
//
// Compress runs a parallel mutate/rebase search for the byte-context model
// ensemble that minimizes the coded size of the input, then serializes the
// result to fcmp's self-describing container format. Extract reverses the
// process from the serialized bytes alone; no side information beyond the
// container itself is required.
package fcmp

import (
	"io/ioutil"

	"fcmp/container"
	"fcmp/extract"
	"fcmp/fcmperr"
	"fcmp/search"
)

// Compress searches for a model ensemble that compresses data well and
// returns the serialized container bytes.
func Compress(data []byte, opts search.Options) ([]byte, error) {
	if len(data)*8 >= container.MaxBitPayloadLength {
		return nil, fcmperr.New(fcmperr.InputTooLarge, "input is %d bits, exceeds %d", len(data)*8, container.MaxBitPayloadLength)
	}
	record, err := search.Compress(data, opts)
	if err != nil {
		return nil, err
	}
	return container.Serialize(record)
}

// Extract parses a serialized container and reproduces the original bytes.
func Extract(data []byte) ([]byte, error) {
	record, err := container.Parse(data)
	if err != nil {
		return nil, err
	}
	return extract.Bytes(record)
}

// CompressFile reads the file at filePath and returns its serialized,
// compressed container bytes.
func CompressFile(filePath string, opts search.Options) ([]byte, error) {
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Compress(data, opts)
}

// Open reads the compressed file at filePath and returns its original bytes.
func Open(filePath string) ([]byte, error) {
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Extract(data)
}
