package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ManifestName is the optional pairing file at the dataset root.
const ManifestName = "manifest.json"

// Pair names one image file and its annotation file, both relative to the
// dataset's images/ and annotations/ directories.
type Pair struct {
	Image      string `json:"image"`
	Annotation string `json:"annotation"`
}

// Manifest declares the image ↔ annotation pairing explicitly, replacing the
// fragile convention of pairing by sorted directory order.
type Manifest struct {
	Pairs []Pair `json:"pairs"`
}

// loadPairs resolves the dataset's pairing. A manifest.json at the root wins;
// without one, images and annotations are paired positionally by sorted
// filename, which requires the two listings to have equal length.
func loadPairs(root string) ([]Pair, error) {
	manifestPath := filepath.Join(root, ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return loadManifest(root, manifestPath)
	}
	return listingPairs(root)
}

func loadManifest(root, path string) ([]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DatasetError{Index: -1, Path: path, Msg: "cannot read manifest", Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &DatasetError{Index: -1, Path: path, Msg: "malformed manifest JSON", Err: err}
	}
	if len(m.Pairs) == 0 {
		return nil, &DatasetError{Index: -1, Path: path, Msg: "manifest declares no pairs"}
	}

	// Fail fast on duplicates and dangling references rather than at
	// sample-access time mid-training.
	seenImg := make(map[string]bool, len(m.Pairs))
	seenAnn := make(map[string]bool, len(m.Pairs))
	for i, p := range m.Pairs {
		if p.Image == "" || p.Annotation == "" {
			return nil, &DatasetError{Index: i, Path: path, Msg: "manifest pair with empty filename"}
		}
		if seenImg[p.Image] {
			return nil, &DatasetError{Index: i, Path: path, Msg: fmt.Sprintf("duplicate image %q in manifest", p.Image)}
		}
		if seenAnn[p.Annotation] {
			return nil, &DatasetError{Index: i, Path: path, Msg: fmt.Sprintf("duplicate annotation %q in manifest", p.Annotation)}
		}
		seenImg[p.Image] = true
		seenAnn[p.Annotation] = true

		imgPath := filepath.Join(root, "images", p.Image)
		if _, err := os.Stat(imgPath); err != nil {
			return nil, &DatasetError{Index: i, Path: imgPath, Msg: "manifest references missing image", Err: err}
		}
		annPath := filepath.Join(root, "annotations", p.Annotation)
		if _, err := os.Stat(annPath); err != nil {
			return nil, &DatasetError{Index: i, Path: annPath, Msg: "manifest references missing annotation", Err: err}
		}
	}
	return m.Pairs, nil
}

func listingPairs(root string) ([]Pair, error) {
	images, err := sortedNames(filepath.Join(root, "images"))
	if err != nil {
		return nil, err
	}
	annotations, err := sortedNames(filepath.Join(root, "annotations"))
	if err != nil {
		return nil, err
	}

	if len(images) != len(annotations) {
		return nil, &DatasetError{
			Index: -1,
			Path:  root,
			Msg:   fmt.Sprintf("positional pairing needs equal counts: %d images, %d annotations", len(images), len(annotations)),
		}
	}
	if len(images) == 0 {
		return nil, &DatasetError{Index: -1, Path: root, Msg: "dataset contains no images"}
	}

	pairs := make([]Pair, len(images))
	for i := range images {
		pairs[i] = Pair{Image: images[i], Annotation: annotations[i]}
	}
	return pairs, nil
}

func sortedNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DatasetError{Index: -1, Path: dir, Msg: "cannot list directory", Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
