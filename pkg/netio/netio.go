// Package netio reads and writes drainage networks as JSON.
//
// The wire format (see [Graph]) stores the outlet ID, the subcatchments with
// their areas, and the downstream edges. It is the boundary format shared by
// the CLI, the HTTP API, the result cache, and the run archive.
package netio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/perisponge/stormflow/pkg/network"
)

// MarshalNetwork converts a network to JSON bytes.
// Nodes are sorted by ID for deterministic output.
func MarshalNetwork(n *network.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNetworkTo(n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteNetworkFile writes a network to a JSON file.
// The file is created with 0644 permissions.
func WriteNetworkFile(n *network.Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeNetworkTo(n, f)
}

// WriteNetwork writes a network as JSON to an io.Writer.
// Use MarshalNetwork for in-memory serialization or WriteNetworkFile for files.
func WriteNetwork(n *network.Network, w io.Writer) error {
	return writeNetworkTo(n, w)
}

// ReadNetworkFile reads a JSON file and returns the decoded network.
// Returns errors for malformed JSON or network constraint violations.
func ReadNetworkFile(path string) (*network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readNetworkFrom(f)
}

// ReadNetwork decodes a JSON network from an io.Reader.
// Use ReadNetworkFile for files or pass bytes.NewReader for in-memory data.
func ReadNetwork(r io.Reader) (*network.Network, error) {
	return readNetworkFrom(r)
}

func writeNetworkTo(n *network.Network, w io.Writer) error {
	out := FromNetwork(n)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readNetworkFrom(r io.Reader) (*network.Network, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToNetwork(data)
}
