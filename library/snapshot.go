package library

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/hupe1980/templix/blobstore"
	"github.com/hupe1980/templix/codec"
	"github.com/hupe1980/templix/internal/resource"
	"github.com/hupe1980/templix/orientation"
)

// Snapshot format:
//
//	[Magic uint32]["TMXL"]
//	[Version uint32]
//	[CodecNameLen uint16][CodecName...]
//	[Compression uint8]
//	[BodyLen uint64][Body block (see compression.go)]
//	[Checksum uint32]  CRC32 (IEEE) over everything before it
//
// The header is self-describing: Load selects the codec by the stored name
// and validates magic, version and checksum before decoding.
const (
	// snapshotMagic identifies templix library snapshots (ASCII "TMXL").
	snapshotMagic   = 0x544D584C
	snapshotVersion = 1
)

var (
	// ErrInvalidMagic is returned when a blob is not a library snapshot.
	ErrInvalidMagic = errors.New("invalid snapshot magic")
	// ErrInvalidVersion is returned for unsupported snapshot versions.
	ErrInvalidVersion = errors.New("unsupported snapshot version")
	// ErrChecksumMismatch is returned when a snapshot is corrupted.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	// ErrUnknownCodec is returned when the stored codec is not registered.
	ErrUnknownCodec = errors.New("unknown snapshot codec")
)

// SnapshotMetrics receives one measurement per save or load. The root
// package's MetricsCollector satisfies it.
type SnapshotMetrics interface {
	RecordSnapshot(bytes int64, duration time.Duration, err error)
}

// SnapshotOptions control snapshot encoding.
type SnapshotOptions struct {
	// Codec encodes the library body. Nil means codec.Default.
	Codec codec.Codec
	// Compression is the body compression. Default CompressionZSTD.
	Compression Compression
	// Controller, when set, rate-limits snapshot transfer so uploads do
	// not starve concurrent indexation.
	Controller *resource.Controller
	// Metrics, when set, records wire bytes, duration and outcome of
	// each Save and Load.
	Metrics SnapshotMetrics
}

// DefaultSnapshotOptions returns the default snapshot encoding options.
func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{
		Codec:       codec.Default,
		Compression: CompressionZSTD,
	}
}

// snapshotBody is the serialized library payload.
type snapshotBody struct {
	Phases []snapshotPhase `json:"phases"`
}

type snapshotPhase struct {
	Label     string             `json:"label"`
	Templates []snapshotTemplate `json:"templates"`
}

type snapshotTemplate struct {
	PeakX     []float32  `json:"peak_x"`
	PeakY     []float32  `json:"peak_y"`
	Intensity []float32  `json:"intensity"`
	Rotation  [9]float64 `json:"rotation"`
}

// Encode serializes the library to the snapshot wire format.
func Encode(lib *Library, opts SnapshotOptions) ([]byte, error) {
	c := opts.Codec
	if c == nil {
		c = codec.Default
	}

	body := snapshotBody{}
	for _, p := range lib.phases {
		sp := snapshotPhase{Label: p.Label}
		for _, t := range p.Templates {
			sp.Templates = append(sp.Templates, snapshotTemplate{
				PeakX:     t.PeakX,
				PeakY:     t.PeakY,
				Intensity: t.Intensity,
				Rotation:  t.Rotation.M,
			})
		}
		body.Phases = append(body.Phases, sp)
	}

	encoded, err := c.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot body: %w", err)
	}
	block, err := compressBlock(encoded, opts.Compression)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], snapshotMagic)
	buf.Write(scratch[:4])
	binary.LittleEndian.PutUint32(scratch[:4], snapshotVersion)
	buf.Write(scratch[:4])

	name := c.Name()
	binary.LittleEndian.PutUint16(scratch[:2], uint16(len(name)))
	buf.Write(scratch[:2])
	buf.WriteString(name)

	buf.WriteByte(byte(opts.Compression))

	binary.LittleEndian.PutUint64(scratch[:8], uint64(len(block)))
	buf.Write(scratch[:8])
	buf.Write(block)

	binary.LittleEndian.PutUint32(scratch[:4], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(scratch[:4])

	return buf.Bytes(), nil
}

// Decode deserializes a snapshot produced by Encode.
func Decode(data []byte) (*Library, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read snapshot magic: %w", err)
	}
	if magic != snapshotMagic {
		return nil, ErrInvalidMagic
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read snapshot version: %w", err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}

	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("read codec name length: %w", err)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, fmt.Errorf("read codec name: %w", err)
	}
	c, ok := codec.ByName(string(nameBytes))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, string(nameBytes))
	}

	compByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read compression type: %w", err)
	}
	compression := Compression(compByte)

	var bodyLen uint64
	if err := binary.Read(r, binary.LittleEndian, &bodyLen); err != nil {
		return nil, fmt.Errorf("read body length: %w", err)
	}
	if bodyLen > uint64(r.Len()) {
		return nil, errors.New("snapshot body truncated")
	}
	block := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}

	var checksum uint32
	if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
		return nil, fmt.Errorf("read snapshot checksum: %w", err)
	}
	if crc32.ChecksumIEEE(data[:len(data)-4]) != checksum {
		return nil, ErrChecksumMismatch
	}

	encoded, err := decompressBlock(block, compression)
	if err != nil {
		return nil, err
	}

	var body snapshotBody
	if err := c.Unmarshal(encoded, &body); err != nil {
		return nil, fmt.Errorf("decode snapshot body: %w", err)
	}

	phases := make([]Phase, 0, len(body.Phases))
	for _, sp := range body.Phases {
		p := Phase{Label: sp.Label}
		for _, st := range sp.Templates {
			p.Templates = append(p.Templates, Template{
				PeakX:     st.PeakX,
				PeakY:     st.PeakY,
				Intensity: st.Intensity,
				Rotation:  orientation.Rotation{M: st.Rotation},
			})
		}
		phases = append(phases, p)
	}
	return New(phases)
}

// Save encodes the library and writes it to the blob store under name.
func Save(ctx context.Context, store blobstore.BlobStore, name string, lib *Library, opts SnapshotOptions) (err error) {
	start := time.Now()
	var wire int64
	defer func() {
		if opts.Metrics != nil {
			opts.Metrics.RecordSnapshot(wire, time.Since(start), err)
		}
	}()

	data, err := Encode(lib, opts)
	if err != nil {
		return err
	}
	wire = int64(len(data))

	if err = opts.Controller.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Load reads a snapshot blob from the store and decodes it. Codec and
// compression come from the snapshot header; opts only contributes the
// controller and metrics.
func Load(ctx context.Context, store blobstore.BlobStore, name string, opts SnapshotOptions) (lib *Library, err error) {
	start := time.Now()
	var wire int64
	defer func() {
		if opts.Metrics != nil {
			opts.Metrics.RecordSnapshot(wire, time.Since(start), err)
		}
	}()

	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	wire = int64(len(data))

	if err = opts.Controller.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return Decode(data)
}
