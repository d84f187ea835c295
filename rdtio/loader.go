package rdtio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sbinet/npyio"

	"github.com/sherief/glimpse/rdt"
)

// Loader produces a training corpus from some backing store. DirLoader and
// NpyLoader are the two concrete implementations; cmd/train_rdt picks one
// based on which of --data-dir or --npy is set.
type Loader interface {
	Load(limit, skip uint32) (rdt.Corpus, error)
}

// DirLoader reads a directory of paired depth/label image files, named
// like depth_%05d.npy and label_%05d.npy, sorted by their numeric index.
// NewDirLoader allocates an LRU cache of the requested size, but Load does
// not consult it: every image is read straight off disk and copied into
// the corpus blocks up front.
type DirLoader struct {
	Dir           string
	Width, Height int
	FOV           float32
	NLabels       uint8
	cache         *lru.Cache[string, []byte]
}

// NewDirLoader builds a DirLoader with a decode cache sized cacheEntries.
func NewDirLoader(dir string, width, height int, fov float32, nLabels uint8, cacheEntries int) (*DirLoader, error) {
	cache, err := lru.New[string, []byte](cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("rdtio: building image cache: %w", err)
	}
	return &DirLoader{Dir: dir, Width: width, Height: height, FOV: fov, NLabels: nLabels, cache: cache}, nil
}

// indexedPair is one (depth file, label file) pair discovered under Dir,
// keyed by the numeric suffix shared between the two filenames.
type indexedPair struct {
	index     int
	depthPath string
	labelPath string
}

func (l *DirLoader) discoverPairs() ([]indexedPair, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("rdtio: reading %s: %w", l.Dir, err)
	}
	byIndex := map[int]*indexedPair{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, "depth_") && strings.HasSuffix(name, ".npy"):
			idx, err := parseIndex(name, "depth_")
			if err != nil {
				continue
			}
			p := byIndex[idx]
			if p == nil {
				p = &indexedPair{index: idx}
				byIndex[idx] = p
			}
			p.depthPath = filepath.Join(l.Dir, name)
		case strings.HasPrefix(name, "label_") && strings.HasSuffix(name, ".npy"):
			idx, err := parseIndex(name, "label_")
			if err != nil {
				continue
			}
			p := byIndex[idx]
			if p == nil {
				p = &indexedPair{index: idx}
				byIndex[idx] = p
			}
			p.labelPath = filepath.Join(l.Dir, name)
		}
	}

	pairs := make([]indexedPair, 0, len(byIndex))
	for _, p := range byIndex {
		if p.depthPath == "" || p.labelPath == "" {
			continue
		}
		pairs = append(pairs, *p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].index < pairs[j].index })
	return pairs, nil
}

func parseIndex(name, prefix string) (int, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".npy")
	return strconv.Atoi(trimmed)
}

// Load reads limit images (0 means all), skipping the first skip pairs
// after sorting by index, decoding each via npyio.
func (l *DirLoader) Load(limit, skip uint32) (rdt.Corpus, error) {
	pairs, err := l.discoverPairs()
	if err != nil {
		return rdt.Corpus{}, err
	}
	if int(skip) > len(pairs) {
		skip = uint32(len(pairs))
	}
	pairs = pairs[skip:]
	if limit > 0 && uint32(len(pairs)) > limit {
		pairs = pairs[:limit]
	}

	corpus := rdt.Corpus{
		Width:   l.Width,
		Height:  l.Height,
		FOV:     l.FOV,
		NLabels: l.NLabels,
		NImages: uint32(len(pairs)),
	}
	frame := l.Width * l.Height
	corpus.DepthImages = make([]float32, len(pairs)*frame)
	corpus.LabelImages = make([]uint8, len(pairs)*frame)

	for i, pair := range pairs {
		depth, err := l.readDepth(pair.depthPath)
		if err != nil {
			return rdt.Corpus{}, fmt.Errorf("rdtio: %s: %w", pair.depthPath, err)
		}
		labels, err := l.readLabels(pair.labelPath)
		if err != nil {
			return rdt.Corpus{}, fmt.Errorf("rdtio: %s: %w", pair.labelPath, err)
		}
		copy(corpus.DepthImages[i*frame:(i+1)*frame], depth)
		copy(corpus.LabelImages[i*frame:(i+1)*frame], labels)
	}
	return corpus, nil
}

func (l *DirLoader) readDepth(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var data []float32
	if err := npyio.Read(f, &data); err != nil {
		return nil, fmt.Errorf("npyio: %w", err)
	}
	return data, nil
}

func (l *DirLoader) readLabels(path string) ([]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var data []uint8
	if err := npyio.Read(f, &data); err != nil {
		return nil, fmt.Errorf("npyio: %w", err)
	}
	return data, nil
}

// NpyLoader reads a single pre-packed .npy file holding the whole corpus
// (depth and label planes concatenated along a leading axis), the format
// a bulk-export pipeline is more likely to produce than one file pair per
// frame.
type NpyLoader struct {
	Path          string
	Width, Height int
	FOV           float32
	NLabels       uint8
}

// Load reads the packed corpus, applying skip/limit over the image axis.
func (l *NpyLoader) Load(limit, skip uint32) (rdt.Corpus, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return rdt.Corpus{}, err
	}
	defer f.Close()

	var packed []float32
	if err := npyio.Read(f, &packed); err != nil {
		return rdt.Corpus{}, fmt.Errorf("rdtio: npyio read %s: %w", l.Path, err)
	}

	frame := l.Width * l.Height
	// packed is [image][plane(depth=0,label=1)][y][x], flattened.
	total := len(packed) / (2 * frame)
	if int(skip) > total {
		skip = uint32(total)
	}
	n := uint32(total) - skip
	if limit > 0 && n > limit {
		n = limit
	}

	corpus := rdt.Corpus{Width: l.Width, Height: l.Height, FOV: l.FOV, NLabels: l.NLabels, NImages: n}
	corpus.DepthImages = make([]float32, int(n)*frame)
	corpus.LabelImages = make([]uint8, int(n)*frame)

	for i := uint32(0); i < n; i++ {
		src := int(skip+i) * 2 * frame
		copy(corpus.DepthImages[int(i)*frame:int(i+1)*frame], packed[src:src+frame])
		for j := 0; j < frame; j++ {
			corpus.LabelImages[int(i)*frame+j] = uint8(packed[src+frame+j])
		}
	}
	return corpus, nil
}
