// Package rdtio handles everything the training engine itself never
// touches: reading a corpus off disk, writing a trained tree to the binary
// .rdt format and its sibling JSON dump, and rendering a tree as a graph.
package rdtio

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/sherief/glimpse/rdt"
)

// magic is the three-byte tag every .rdt file opens with.
var magic = [3]byte{'R', 'D', 'T'}

// header is the on-disk fixed-size prefix: magic, format version, tree
// depth, label count, background label, then the vertical FOV as a raw
// float32. Field order and sizes are carried over from the original
// tool's RDTHeader so a checkpoint written by one version of this tool
// stays recognizable to a reader expecting the other.
type header struct {
	Magic      [3]byte
	Version    uint8
	Depth      uint8
	NLabels    uint8
	Background uint8
	FOV        float32
}

const nodeRecordSize = 4*4 + 4 + 4 // UV[4] + T + LabelPrIdx, all 4-byte fields

// SaveTree writes tree to path in the packed binary .rdt format.
func SaveTree(path string, tree *rdt.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteTree(f, tree)
}

// WriteTree encodes tree onto w: header, node array, then the probability
// table staged through a gonum mat.Dense so every row is written row-major
// with exactly NLabels entries, regardless of how ragged the table's
// construction was during training. Values are written as-is; NaN or Inf
// entries are not checked.
func WriteTree(w io.Writer, tree *rdt.Tree) error {
	h := header{Magic: magic, Version: tree.Version, Depth: tree.Depth, NLabels: tree.NLabels, Background: tree.Background, FOV: tree.FOV}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("rdtio: write header: %w", err)
	}

	for _, n := range tree.Nodes {
		fields := []float32{n.UV[0], n.UV[1], n.UV[2], n.UV[3], n.T}
		if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
			return fmt.Errorf("rdtio: write node: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, n.LabelPrIdx); err != nil {
			return fmt.Errorf("rdtio: write node label index: %w", err)
		}
	}

	// No row-count field precedes the probability table: spec §6 documents
	// the on-disk layout as header, node array, then exactly
	// n_pr_tables x L floats with nothing in between. A reader recovers
	// n_pr_tables by dividing the remaining byte count by L (see
	// ReadTreeFrom), the same way the original tool's LabelPrIdx values
	// are the only record of the row count kept anywhere.
	probTable := stageProbTable(tree)
	rows, cols := probTable.Dims()
	for r := 0; r < rows; r++ {
		row := make([]float32, cols)
		for c := 0; c < cols; c++ {
			row[c] = float32(probTable.At(r, c))
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("rdtio: write prob table row: %w", err)
		}
	}
	return nil
}

// stageProbTable copies a tree's ragged [][]float32 probability rows into
// a dense matrix of NLabels columns, padding any short row with zeros and
// dropping entries past NLabels in a long row, so the written byte count
// always matches the header; no error is reported for such a row.
func stageProbTable(tree *rdt.Tree) *mat.Dense {
	rows := len(tree.ProbTable)
	cols := int(tree.NLabels)
	m := mat.NewDense(rows, cols, nil)
	for r, row := range tree.ProbTable {
		for c, v := range row {
			if c >= cols {
				break
			}
			m.Set(r, c, float64(v))
		}
	}
	return m
}

// ReadTree reads path back into a *rdt.Tree, in whatever state of
// completion it was saved in; unfinished slots keep rdt.Sentinel.
func ReadTree(path string) (*rdt.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTreeFrom(f)
}

// ReadTreeFrom decodes a tree from r, the inverse of WriteTree.
func ReadTreeFrom(r io.Reader) (*rdt.Tree, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("rdtio: read header: %w", err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("rdtio: bad magic %q, not an .rdt file", h.Magic)
	}

	n := rdt.NodeCount(h.Depth)
	nodes := make([]rdt.Node, n)
	for i := range nodes {
		var fields [5]float32
		if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
			return nil, fmt.Errorf("rdtio: read node %d: %w", i, err)
		}
		var labelIdx uint32
		if err := binary.Read(r, binary.LittleEndian, &labelIdx); err != nil {
			return nil, fmt.Errorf("rdtio: read node %d label index: %w", i, err)
		}
		nodes[i] = rdt.Node{
			UV:         rdt.UV{fields[0], fields[1], fields[2], fields[3]},
			T:          fields[4],
			LabelPrIdx: labelIdx,
		}
	}

	// The probability table carries no length prefix: it runs to the end
	// of the file, n_pr_tables x L floats. Read the remainder whole and
	// recover the row count from its size, the mirror image of how
	// WriteTree emits it.
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rdtio: read prob table: %w", err)
	}
	rowBytes := int(h.NLabels) * 4
	if rowBytes == 0 || len(rest)%rowBytes != 0 {
		return nil, fmt.Errorf("rdtio: probability table is %d bytes, not a multiple of row size %d", len(rest), rowBytes)
	}
	rowCount := len(rest) / rowBytes
	probTable := make([][]float32, rowCount)
	br := bytes.NewReader(rest)
	for i := range probTable {
		row := make([]float32, h.NLabels)
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("rdtio: read prob table row %d: %w", i, err)
		}
		probTable[i] = row
	}

	return &rdt.Tree{
		Version:    h.Version,
		Depth:      h.Depth,
		NLabels:    h.NLabels,
		Background: h.Background,
		FOV:        h.FOV,
		Nodes:      nodes,
		ProbTable:  probTable,
	}, nil
}

// jsonTree is the sibling human-readable dump format; field names are this
// tool's own, not a transliteration of the binary layout's C struct names.
type jsonTree struct {
	Version    uint8       `json:"version"`
	Depth      uint8       `json:"depth"`
	NLabels    uint8       `json:"n_labels"`
	Background uint8       `json:"background_label"`
	FOV        float32     `json:"fov"`
	Nodes      []jsonNode  `json:"nodes"`
	ProbTable  [][]float32 `json:"probability_table"`
}

type jsonNode struct {
	UV         [4]float32 `json:"uv"`
	T          float32    `json:"threshold"`
	LabelPrIdx uint32     `json:"label_pr_idx"`
}

// SaveTreeJSON writes the same tree as human-readable JSON alongside the
// binary artifact, for inspection and for tooling that would rather not
// parse the packed format.
func SaveTreeJSON(path string, tree *rdt.Tree) error {
	jt := jsonTree{
		Version:    tree.Version,
		Depth:      tree.Depth,
		NLabels:    tree.NLabels,
		Background: tree.Background,
		FOV:        tree.FOV,
		ProbTable:  tree.ProbTable,
	}
	for _, n := range tree.Nodes {
		jt.Nodes = append(jt.Nodes, jsonNode{UV: n.UV, T: n.T, LabelPrIdx: n.LabelPrIdx})
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jt); err != nil {
		return fmt.Errorf("rdtio: encode json: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
