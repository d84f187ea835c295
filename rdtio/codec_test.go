package rdtio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sherief/glimpse/rdt"
)

func sampleTree() *rdt.Tree {
	nodes := []rdt.Node{
		{UV: rdt.UV{0.1, 0.2, 0.3, 0.4}, T: 0.5, LabelPrIdx: 0},
		{UV: rdt.UV{}, T: 0, LabelPrIdx: 1},
		{UV: rdt.UV{}, T: 0, LabelPrIdx: 2},
	}
	return &rdt.Tree{
		Version:    rdt.FormatVersion,
		Depth:      2,
		NLabels:    3,
		Background: 0,
		FOV:        1.2,
		Nodes:      nodes,
		ProbTable: [][]float32{
			{0.7, 0.2, 0.1},
			{0.0, 0.5, 0.5},
		},
	}
}

func TestWriteReadTreeRoundTrip(t *testing.T) {
	tree := sampleTree()
	buf := &bytes.Buffer{}
	if err := WriteTree(buf, tree); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTreeFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != tree.Version || got.Depth != tree.Depth || got.NLabels != tree.NLabels || got.Background != tree.Background {
		t.Fatalf("header mismatch: got %+v, want fields from %+v", got, tree)
	}
	if got.FOV != tree.FOV {
		t.Fatalf("FOV = %v, want %v", got.FOV, tree.FOV)
	}
	if len(got.Nodes) != len(tree.Nodes) {
		t.Fatalf("node count = %d, want %d", len(got.Nodes), len(tree.Nodes))
	}
	for i := range tree.Nodes {
		if got.Nodes[i] != tree.Nodes[i] {
			t.Fatalf("node %d = %+v, want %+v", i, got.Nodes[i], tree.Nodes[i])
		}
	}
	if len(got.ProbTable) != len(tree.ProbTable) {
		t.Fatalf("prob table rows = %d, want %d", len(got.ProbTable), len(tree.ProbTable))
	}
	for r := range tree.ProbTable {
		for c := range tree.ProbTable[r] {
			if got.ProbTable[r][c] != tree.ProbTable[r][c] {
				t.Fatalf("prob[%d][%d] = %v, want %v", r, c, got.ProbTable[r][c], tree.ProbTable[r][c])
			}
		}
	}
}

func TestSaveReadTreeRoundTripOnDisk(t *testing.T) {
	tree := sampleTree()
	path := filepath.Join(t.TempDir(), "model.rdt")
	if err := SaveTree(path, tree); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTree(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.NLabels != tree.NLabels {
		t.Fatalf("NLabels = %d, want %d", got.NLabels, tree.NLabels)
	}
}

func TestWriteTreeOmitsProbTableLengthPrefix(t *testing.T) {
	tree := sampleTree()
	buf := &bytes.Buffer{}
	if err := WriteTree(buf, tree); err != nil {
		t.Fatal(err)
	}
	headerSize := 3 + 1 + 1 + 1 + 1 + 4
	nodesSize := len(tree.Nodes) * nodeRecordSize
	wantProbBytes := len(tree.ProbTable) * int(tree.NLabels) * 4
	gotProbBytes := buf.Len() - headerSize - nodesSize
	if gotProbBytes != wantProbBytes {
		t.Fatalf("probability table section is %d bytes, want exactly %d (n_pr_tables x L floats, no length prefix)", gotProbBytes, wantProbBytes)
	}
}

func TestReadTreeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not an rdt file at all, definitely too short and wrong")
	if _, err := ReadTreeFrom(buf); err == nil {
		t.Fatal("expected an error for a file with the wrong magic")
	}
}

func TestSaveTreeJSONWritesValidFile(t *testing.T) {
	tree := sampleTree()
	path := filepath.Join(t.TempDir(), "model.rdt.json")
	if err := SaveTreeJSON(path, tree); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("json dump is empty")
	}
	if !bytes.Contains(data, []byte("\"n_labels\": 3")) {
		t.Fatalf("json dump missing expected n_labels field: %s", data)
	}
}
