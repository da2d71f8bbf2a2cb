package checkpoint

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/types"
	"github.com/klauspost/compress/zstd"
)

// Encoded layout:
//   - magic:      4 bytes "ICKP"
//   - version:    1 byte
//   - body:       zstd frame
//
// Body (little-endian):
//   - name_len:   2 bytes, name
//   - program:    32 bytes
//   - created_at: 8 bytes (unix nanoseconds)
//   - pc, rb:     8 bytes each
//   - halted:     1 byte
//   - steps, inputs, outputs: 8 bytes each
//   - input_pos:  8 bytes
//   - memory, inputs, outputs: 8 byte count followed by 8 byte cells

const (
	magic         = "ICKP"
	formatVersion = 1
	headerSize    = len(magic) + 1

	fixedBodySize = 2 + types.HashSize + 8 + 8 + 8 + 1 + 3*8 + 8
)

// Codec encodes and decodes checkpoints. A Codec is safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec creates a codec compressing at the given zstd level (1-22). Zero
// selects the library default.
func NewCodec(level int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	if level != 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Codec{enc: enc, dec: dec}, nil
}

// Close releases the codec's compression resources.
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// Encode serializes cp.
func (c *Codec) Encode(cp *Checkpoint) ([]byte, error) {
	if cp == nil {
		return nil, fmt.Errorf("cannot encode nil checkpoint")
	}
	if err := ValidateName(cp.Name); err != nil {
		return nil, err
	}

	s := cp.State
	size := fixedBodySize + len(cp.Name) + 3*8 + 8*(len(s.Memory)+len(s.Inputs)+len(s.Outputs))
	body := make([]byte, 0, size)

	body = binary.LittleEndian.AppendUint16(body, uint16(len(cp.Name)))
	body = append(body, cp.Name...)
	body = append(body, cp.Program.Bytes()...)
	body = binary.LittleEndian.AppendUint64(body, uint64(cp.CreatedAt.UnixNano()))
	body = binary.LittleEndian.AppendUint64(body, uint64(s.PC))
	body = binary.LittleEndian.AppendUint64(body, uint64(s.RelativeBase))
	if s.Halted {
		body = append(body, 1)
	} else {
		body = append(body, 0)
	}
	body = binary.LittleEndian.AppendUint64(body, s.Stats.Steps)
	body = binary.LittleEndian.AppendUint64(body, s.Stats.Inputs)
	body = binary.LittleEndian.AppendUint64(body, s.Stats.Outputs)
	body = binary.LittleEndian.AppendUint64(body, uint64(s.InputPos))
	body = appendCells(body, s.Memory)
	body = appendCells(body, s.Inputs)
	body = appendCells(body, s.Outputs)

	out := make([]byte, 0, headerSize+len(body)/2)
	out = append(out, magic...)
	out = append(out, formatVersion)
	return c.enc.EncodeAll(body, out), nil
}

// Decode parses data produced by Encode.
func (c *Codec) Decode(data []byte) (*Checkpoint, error) {
	if len(data) < headerSize || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidCheckpoint)
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCheckpoint, v)
	}

	body, err := c.dec.DecodeAll(data[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}

	r := &reader{buf: body}
	cp := &Checkpoint{}

	nameLen := int(r.u16())
	cp.Name = string(r.take(nameLen))
	copy(cp.Program[:], r.take(types.HashSize))
	cp.CreatedAt = time.Unix(0, int64(r.u64())).UTC()

	s := intcode.State{}
	s.PC = int64(r.u64())
	s.RelativeBase = int64(r.u64())
	s.Halted = r.u8() != 0
	s.Stats.Steps = r.u64()
	s.Stats.Inputs = r.u64()
	s.Stats.Outputs = r.u64()
	s.InputPos = int(r.u64())
	s.Memory = r.cells()
	s.Inputs = r.cells()
	s.Outputs = r.cells()

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(r.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidCheckpoint, len(r.buf)-r.off)
	}
	cp.State = s
	return cp, nil
}

func appendCells(buf []byte, cells []int64) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(cells)))
	for _, v := range cells {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
	}
	return buf
}

// reader walks a decompressed body. The first short read sets err and every
// later read returns zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrInvalidCheckpoint, r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) cells() []int64 {
	n := r.u64()
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)-r.off)/8 {
		r.err = fmt.Errorf("%w: %d cells exceed remaining data", ErrInvalidCheckpoint, n)
		return nil
	}

	cells := make([]int64, n)
	for i := range cells {
		cells[i] = int64(binary.LittleEndian.Uint64(r.buf[r.off:]))
		r.off += 8
	}
	return cells
}

var (
	defaultCodec     *Codec
	defaultCodecErr  error
	defaultCodecOnce sync.Once
)

func getDefaultCodec() (*Codec, error) {
	defaultCodecOnce.Do(func() {
		defaultCodec, defaultCodecErr = NewCodec(0)
	})
	return defaultCodec, defaultCodecErr
}

// Encode serializes cp with the default codec.
func Encode(cp *Checkpoint) ([]byte, error) {
	c, err := getDefaultCodec()
	if err != nil {
		return nil, err
	}
	return c.Encode(cp)
}

// Decode parses data with the default codec.
func Decode(data []byte) (*Checkpoint, error) {
	c, err := getDefaultCodec()
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}
