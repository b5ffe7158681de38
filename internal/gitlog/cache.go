package gitlog

import (
	"encoding/binary"
	"fmt"
)

// EncodeArtifacts frames the three raw captures as length-prefixed blocks
// for storage in the content-addressed cache. PartialErr is not part of
// the frame: only a clean extraction (no PartialErr) is ever cached.
func EncodeArtifacts(a *Artifacts) []byte {
	return encodeBlocks(a.FullHistory, a.Stats, a.Codemaat)
}

// DecodeArtifacts reverses EncodeArtifacts.
func DecodeArtifacts(raw []byte) (*Artifacts, error) {
	blocks, err := decodeBlocks(raw, 3)
	if err != nil {
		return nil, err
	}

	return &Artifacts{FullHistory: blocks[0], Stats: blocks[1], Codemaat: blocks[2]}, nil
}

func encodeBlocks(blocks ...[]byte) []byte {
	var out []byte

	var lenBuf [8]byte

	for _, b := range blocks {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
		out = append(out, lenBuf[:]...)
		out = append(out, b...)
	}

	return out
}

func decodeBlocks(raw []byte, count int) ([][]byte, error) {
	blocks := make([][]byte, 0, count)

	for i := 0; i < count; i++ {
		if len(raw) < 8 {
			return nil, fmt.Errorf("truncated cache frame: block %d header", i)
		}

		n := binary.LittleEndian.Uint64(raw[:8])
		raw = raw[8:]

		if uint64(len(raw)) < n {
			return nil, fmt.Errorf("truncated cache frame: block %d body", i)
		}

		blocks = append(blocks, raw[:n])
		raw = raw[n:]
	}

	return blocks, nil
}
