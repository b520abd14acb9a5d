package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/mini-colony/internal/engine"
)

// SnapshotHeader is the first line of a snapshot stream, readable without
// decoding the full state.
type SnapshotHeader struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Seed    uint64 `json:"seed"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Agents  int    `json:"agents"`
	Jobs    int    `json:"jobs"`
}

func headerOf(st engine.State) SnapshotHeader {
	return SnapshotHeader{
		Version: st.Version,
		Tick:    st.Tick,
		Seed:    st.Seed,
		Width:   st.Width,
		Height:  st.Height,
		Agents:  len(st.Agents),
		Jobs:    len(st.Jobs),
	}
}

// WriteSnapshot encodes st as a zstd-compressed stream: a JSON header line
// followed by the JSON state.
func WriteSnapshot(w io.Writer, st engine.State) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	je := json.NewEncoder(bw)
	if err := je.Encode(headerOf(st)); err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if err := je.Encode(st); err != nil {
		enc.Close()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("flush: %w", err)
	}
	return enc.Close()
}

// ReadSnapshot decodes a stream written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (SnapshotHeader, engine.State, error) {
	var (
		hdr SnapshotHeader
		st  engine.State
	)
	dec, err := zstd.NewReader(r)
	if err != nil {
		return hdr, st, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	if err := jd.Decode(&hdr); err != nil {
		return hdr, st, fmt.Errorf("decode header: %w", err)
	}
	if err := jd.Decode(&st); err != nil {
		return hdr, st, fmt.Errorf("decode state: %w", err)
	}
	if hdr.Tick != st.Tick || hdr.Width != st.Width || hdr.Height != st.Height {
		return hdr, st, fmt.Errorf("snapshot header does not match state")
	}
	return hdr, st, nil
}

// SaveSnapshotFile writes st to path, creating parent directories.
func SaveSnapshotFile(path string, st engine.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := WriteSnapshot(f, st); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshotFile reads a snapshot written by SaveSnapshotFile.
func LoadSnapshotFile(path string) (SnapshotHeader, engine.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotHeader{}, engine.State{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
