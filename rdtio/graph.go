package rdtio

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"gonum.org/v1/gonum/mat"

	"github.com/sherief/glimpse/rdt"
)

// RenderTree draws tree as a PNG at path: internal nodes are labeled with
// their threshold, leaves are boxed and labeled with their most probable
// label, recursing from the root the same way a reader would walk the
// flat array by hand.
func RenderTree(tree *rdt.Tree, path string) error {
	g := graphviz.New()
	defer g.Close()

	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("rdtio: creating graph: %w", err)
	}
	defer graph.Close()

	probs := stageProbTable(tree)

	var walk func(idx int) (*cgraph.Node, error)
	walk = func(idx int) (*cgraph.Node, error) {
		if idx >= len(tree.Nodes) {
			return nil, nil
		}
		node := tree.Nodes[idx]
		gn, err := graph.CreateNode(fmt.Sprintf("n%d", idx))
		if err != nil {
			return nil, err
		}

		switch {
		case node.IsLeaf():
			gn.SetShape(cgraph.BoxShape)
			gn.SetLabel(fmt.Sprintf("leaf %d\n%s", idx, dominantLabel(probs, int(node.LabelPrIdx)-1)))
		case node.IsInternal():
			gn.SetShape(cgraph.EllipseShape)
			gn.SetLabel(fmt.Sprintf("node %d\nt=%.3f", idx, node.T))
			for _, child := range []int{2*idx + 1, 2*idx + 2} {
				cn, err := walk(child)
				if err != nil {
					return nil, err
				}
				if cn != nil {
					if _, err := graph.CreateEdge(fmt.Sprintf("n%d-n%d", idx, child), gn, cn); err != nil {
						return nil, err
					}
				}
			}
		default:
			gn.SetShape(cgraph.BoxShape)
			gn.SetLabel(fmt.Sprintf("unfinished %d", idx))
		}
		return gn, nil
	}

	if _, err := walk(0); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.Render(context.Background(), graph, graphviz.PNG, f)
}

// dominantLabel describes the most probable label of a probability table
// row as "label N (P%)", or returns "?" if the row is out of range.
func dominantLabel(probs *mat.Dense, row int) string {
	rows, cols := probs.Dims()
	if row < 0 || row >= rows {
		return "?"
	}
	best, bestP := 0, -1.0
	for c := 0; c < cols; c++ {
		if p := probs.At(row, c); p > bestP {
			bestP = p
			best = c
		}
	}
	return fmt.Sprintf("label %d (%.0f%%)", best, bestP*100)
}
