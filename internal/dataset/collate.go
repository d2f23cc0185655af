package dataset

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// Batch groups samples as parallel ordered sequences. Inputs and targets stay
// per-image: object counts vary between images, so nothing is stacked into a
// single uniform tensor.
type Batch struct {
	Inputs  []*tensor.Dense
	Targets []*Target
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int { return len(b.Inputs) }

// Collate assembles samples into a batch, keeping each image's input tensor
// and target separately addressable.
func Collate(samples []*Sample) *Batch {
	b := &Batch{
		Inputs:  make([]*tensor.Dense, 0, len(samples)),
		Targets: make([]*Target, 0, len(samples)),
	}
	for _, s := range samples {
		b.Inputs = append(b.Inputs, s.Input)
		b.Targets = append(b.Targets, s.Target)
	}
	return b
}

// Loader iterates a dataset in collated batches, optionally reshuffling the
// sample order on every Reset.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	order     []int
	pos       int
}

// NewLoader creates a batch loader. rng may be nil when shuffle is false.
func NewLoader(ds *Dataset, batchSize int, shuffle bool, rng *rand.Rand) *Loader {
	if batchSize < 1 {
		batchSize = 1
	}
	l := &Loader{ds: ds, batchSize: batchSize, shuffle: shuffle, rng: rng}
	l.Reset()
	return l
}

// Reset rewinds the loader and draws a new sample order if shuffling.
func (l *Loader) Reset() {
	if l.order == nil {
		l.order = make([]int, l.ds.Len())
		for i := range l.order {
			l.order[i] = i
		}
	}
	if l.shuffle {
		shuffler := l.rng
		if shuffler == nil {
			l.order = rand.Perm(l.ds.Len())
		} else {
			shuffler.Shuffle(len(l.order), func(i, j int) {
				l.order[i], l.order[j] = l.order[j], l.order[i]
			})
		}
	}
	l.pos = 0
}

// NumBatches returns how many batches one pass over the dataset yields.
func (l *Loader) NumBatches() int {
	n := l.ds.Len()
	return (n + l.batchSize - 1) / l.batchSize
}

// Next returns the next batch, or (nil, nil) when the pass is complete.
func (l *Loader) Next() (*Batch, error) {
	if l.pos >= len(l.order) {
		return nil, nil
	}

	end := l.pos + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}

	samples := make([]*Sample, 0, end-l.pos)
	for _, idx := range l.order[l.pos:end] {
		s, err := l.ds.Sample(idx)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	l.pos = end
	return Collate(samples), nil
}
