// Package vecindex is an append-only flat L2 index over fixed-dimension
// float32 vectors. Positions are assigned in insertion order starting at 0.
package vecindex

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/viant/vec/search"

	"podcast/internal/adapter/fs"
	"podcast/internal/errs"
	"podcast/internal/logging"
)

const (
	magic      = "PLX1"
	headerSize = len(magic) + 4 + 8
)

// NoPosition fills result slots past the number of stored vectors.
const NoPosition int64 = -1

// LoadStatus tells how Load obtained its index.
type LoadStatus int

const (
	StatusLoaded LoadStatus = iota
	StatusMissing
	StatusDimensionMismatch
	StatusCorrupt
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusMissing:
		return "missing"
	case StatusDimensionMismatch:
		return "dimension_mismatch"
	case StatusCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// FlatL2 is an exhaustive nearest-neighbour index. Vectors are stored
// row-major in a single slice.
type FlatL2 struct {
	dim  int
	data []float32
}

// New returns an empty index of the given dimension.
func New(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

func (x *FlatL2) Dim() int { return x.dim }

func (x *FlatL2) Count() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends vectors at positions [Count(), Count()+len(vectors)). Every
// vector is checked before any is stored; on error the index is unchanged.
func (x *FlatL2) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dim {
			return errs.New(errs.CodeIndexDimensionInvalid, "vector dimension does not match index",
				errs.Field("row", i), errs.Field("got", len(v)), errs.Field("want", x.dim))
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

func (x *FlatL2) vector(pos int) search.Float32s {
	return search.Float32s(x.data[pos*x.dim : (pos+1)*x.dim])
}

// Search returns, for each query, up to k nearest stored vectors by
// Euclidean distance, nearest first, ties broken by lower position. Rows
// always have k slots; unused slots hold NoPosition and +Inf.
func (x *FlatL2) Search(queries [][]float32, k int) ([][]float32, [][]int64, error) {
	for i, q := range queries {
		if len(q) != x.dim {
			return nil, nil, errs.New(errs.CodeIndexDimensionInvalid, "query dimension does not match index",
				errs.Field("row", i), errs.Field("got", len(q)), errs.Field("want", x.dim))
		}
	}
	if k < 0 {
		k = 0
	}

	count := x.Count()
	distances := make([][]float32, len(queries))
	positions := make([][]int64, len(queries))

	type hit struct {
		pos  int
		dist float32
	}
	hits := make([]hit, count)

	for qi, q := range queries {
		for pos := 0; pos < count; pos++ {
			hits[pos] = hit{pos: pos, dist: x.vector(pos).EuclideanDistance(q)}
		}
		// stable: equal distances keep ascending position order
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

		dRow := make([]float32, k)
		pRow := make([]int64, k)
		for j := 0; j < k; j++ {
			if j < count {
				dRow[j] = hits[j].dist
				pRow[j] = int64(hits[j].pos)
				continue
			}
			dRow[j] = float32(math.Inf(1))
			pRow[j] = NoPosition
		}
		distances[qi] = dRow
		positions[qi] = pRow
	}
	return distances, positions, nil
}

// MarshalBinary encodes the index as "PLX1", uint32 dim, uint64 count and
// count*dim float32 values, all little-endian.
func (x *FlatL2) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize+len(x.data)*4)
	copy(buf, magic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(x.dim))
	binary.LittleEndian.PutUint64(buf[8:], uint64(x.Count()))

	off := headerSize
	for _, v := range x.data {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf, nil
}

// UnmarshalBinary replaces the index with the encoded one.
func (x *FlatL2) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize {
		return fmt.Errorf("vecindex: truncated header (%d bytes)", len(b))
	}
	if string(b[:4]) != magic {
		return fmt.Errorf("vecindex: bad magic %q", b[:4])
	}
	dim := binary.LittleEndian.Uint32(b[4:])
	count := binary.LittleEndian.Uint64(b[8:])

	payload := uint64(len(b) - headerSize)
	if dim == 0 {
		if count != 0 || payload != 0 {
			return fmt.Errorf("vecindex: zero dimension with %d entries", count)
		}
		x.dim, x.data = 0, nil
		return nil
	}
	if count > payload/(uint64(dim)*4) || count*uint64(dim)*4 != payload {
		return fmt.Errorf("vecindex: payload is %d bytes, header says %d x %d floats", payload, count, dim)
	}

	data := make([]float32, count*uint64(dim))
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[headerSize+i*4:]))
	}
	x.dim, x.data = int(dim), data
	return nil
}

// Persist overwrites path with the encoded index.
func (x *FlatL2) Persist(path string) error {
	data, err := x.MarshalBinary()
	if err != nil {
		return errs.Wrap(err, errs.CodeIndexPersistFailure, "encode index", errs.FieldPath(path))
	}
	if err := fs.WriteFileAtomic(path, data, 0o644); err != nil {
		return errs.Wrap(err, errs.CodeIndexPersistFailure, "write index", errs.FieldPath(path))
	}
	return nil
}

// Load reads the index at path. It never fails: a missing, unreadable or
// wrong-dimension file yields an empty index of expectedDim, and the status
// says which case applied.
func Load(path string, expectedDim int, logger *slog.Logger) (*FlatL2, LoadStatus) {
	logger = logging.OrDefault(logger)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(expectedDim), StatusMissing
	}
	if err != nil {
		logger.Warn("index unreadable, starting empty", "path", path, "error", err)
		return New(expectedDim), StatusCorrupt
	}

	x := &FlatL2{}
	if err := x.UnmarshalBinary(data); err != nil {
		logger.Warn("index corrupt, starting empty", "path", path, "error", err)
		return New(expectedDim), StatusCorrupt
	}
	if x.dim != expectedDim {
		logger.Warn("index dimension changed, starting empty",
			"path", path, "stored_dim", x.dim, "expected_dim", expectedDim, "discarded", x.Count())
		return New(expectedDim), StatusDimensionMismatch
	}
	return x, StatusLoaded
}
