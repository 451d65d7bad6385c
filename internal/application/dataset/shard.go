// Package dataset turns molecule collections into training tensors and
// generator output back into molecules.
//
// A dataset is a manifest plus a sequence of shards in object storage.  Each
// shard holds a fixed-shape sample per molecule: a node vector of length N and
// a row-major N×N edge matrix, N = max_length+1, both float32 as the
// discriminator consumes them.
package dataset

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// ShardVersion is the on-disk shard format version.
const ShardVersion = 1

// shardMagic prefixes every encoded shard.
var shardMagic = []byte("MGSH")

// headerLen is magic(4) + checksum(4).
const headerLen = 8

// Sample is one featurized molecule.
type Sample struct {
	SMILES string    `msgpack:"s"`
	Nodes  []float32 `msgpack:"n"`
	Edges  []float32 `msgpack:"e"`
}

// NewSample flattens g into a Sample.
func NewSample(smiles string, g *molgraph.EncodedGraph) Sample {
	nodes, edges := g.Tensor()
	return Sample{SMILES: smiles, Nodes: nodes, Edges: edges}
}

// Graph rebuilds the encoded graph of s.
func (s Sample) Graph(maxLength int) (*molgraph.EncodedGraph, error) {
	return molgraph.GraphFromTensor(maxLength, s.Nodes, s.Edges)
}

// Shard is a contiguous slice of a dataset.
type Shard struct {
	Version   int      `msgpack:"v"`
	Dataset   string   `msgpack:"d"`
	Index     int      `msgpack:"i"`
	MaxLength int      `msgpack:"m"`
	Samples   []Sample `msgpack:"x"`
}

// Dim is the node count per sample.
func (s *Shard) Dim() int { return s.MaxLength + 1 }

// Validate checks every sample against the shard's dimension.
func (s *Shard) Validate() error {
	if s.MaxLength < 0 {
		return errors.New(errors.ErrCodeShardCorrupt, "shard max length is negative").
			WithDetailf("max_length=%d", s.MaxLength)
	}
	dim := s.Dim()
	for i, smp := range s.Samples {
		if len(smp.Nodes) != dim || len(smp.Edges) != dim*dim {
			return errors.New(errors.ErrCodeTensorShapeMismatch, "sample tensor shape disagrees with shard").
				WithDetailf("sample=%d nodes=%d edges=%d dim=%d", i, len(smp.Nodes), len(smp.Edges), dim)
		}
	}
	return nil
}

// EncodeShard serialises s as magic, CRC32 of the payload, then the
// snappy-compressed msgpack payload.
func EncodeShard(s *Shard) ([]byte, error) {
	if s == nil {
		return nil, errors.New(errors.ErrCodeValidation, "shard is nil")
	}
	if s.Version == 0 {
		s.Version = ShardVersion
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	raw, err := msgpack.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal shard")
	}
	payload := snappy.Encode(nil, raw)

	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))
	buf.Write(shardMagic)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(payload))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeShard is the inverse of EncodeShard.
func DecodeShard(data []byte) (*Shard, error) {
	if len(data) < headerLen || !bytes.Equal(data[:4], shardMagic) {
		return nil, errors.New(errors.ErrCodeShardCorrupt, "missing shard header")
	}
	payload := data[headerLen:]
	want := binary.BigEndian.Uint32(data[4:headerLen])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, errors.New(errors.ErrCodeShardCorrupt, "shard checksum mismatch").
			WithDetailf("want=%08x got=%08x", want, got)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeShardCorrupt, "failed to decompress shard")
	}
	var s Shard
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeShardCorrupt, "failed to unmarshal shard")
	}
	if s.Version != ShardVersion {
		return nil, errors.New(errors.ErrCodeShardVersion, "unsupported shard version").
			WithDetailf("version=%d supported=%d", s.Version, ShardVersion)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

//Personal.AI order the ending
