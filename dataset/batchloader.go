package dataset

import (
	"context"
	"math/rand"
	"sync"

	"github.com/cyclopcam/logs"
)

// BatchLoader fetches samples with a pool of workers and hands out
// post-processed batches in order.
type BatchLoader struct {
	Dataset   *Dataset
	BatchSize int
	Workers   int
	Shuffle   bool
	DropLast  bool
	Seed      int64
	Post      PostFetchFunc

	log logs.Log
}

func NewBatchLoader(log logs.Log, ds *Dataset, batchSize, workers int) *BatchLoader {
	return &BatchLoader{
		Dataset:   ds,
		BatchSize: batchSize,
		Workers:   workers,
		Post:      NewPostProcessor(false).Process,
		log:       log,
	}
}

type job struct {
	pos int
	idx int
}

type result struct {
	pos  int
	item *Item
	err  error
}

// seedFor mixes the loader seed with an epoch and a stream id so that every
// sample and batch gets its own random source, independent of which worker
// picks it up.
func (l *BatchLoader) seedFor(epoch, stream int) int64 {
	x := uint64(l.Seed)*0x9E3779B97F4A7C15 + uint64(epoch)*0xBF58476D1CE4E5B9 + uint64(stream)
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}

// Order returns the sample order for an epoch.
func (l *BatchLoader) Order(epoch int) []int {
	n := l.Dataset.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if l.Shuffle {
		rng := rand.New(rand.NewSource(l.seedFor(epoch, -1)))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// Epoch runs one pass over the dataset, calling fn for every batch. A sample
// that fails is logged and left out of its batch. Cancelling ctx stops the
// pass before the next batch.
func (l *BatchLoader) Epoch(ctx context.Context, epoch int, fn func(*Batch) error) error {
	bs := max(1, l.BatchSize)
	workers := max(1, l.Workers)
	post := l.Post
	if post == nil {
		post = NewPostProcessor(false).Process
	}

	jobs := make(chan job)
	results := make(chan result)
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				rng := rand.New(rand.NewSource(l.seedFor(epoch, j.idx)))
				it, err := l.Dataset.Item(j.idx, rng)
				results <- result{pos: j.pos, item: it, err: err}
			}
		}()
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	order := l.Order(epoch)
	for start, nb := 0, 0; start < len(order); start, nb = start+bs, nb+1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+bs, len(order))
		if l.DropLast && end-start < bs {
			break
		}
		chunk := order[start:end]

		go func() {
			for pos, idx := range chunk {
				jobs <- job{pos: pos, idx: idx}
			}
		}()

		items := make([]*Item, len(chunk))
		for range chunk {
			r := <-results
			if r.err != nil {
				l.log.Warnf("Skipping sample %d: %v", chunk[r.pos], r.err)
				continue
			}
			items[r.pos] = r.item
		}

		kept := items[:0]
		for _, it := range items {
			if it != nil {
				kept = append(kept, it)
			}
		}
		if len(kept) == 0 {
			l.log.Warnf("Batch %d of epoch %d has no usable samples", nb, epoch)
			continue
		}

		raw, err := Collate(kept)
		if err != nil {
			return err
		}
		b, err := post(rand.New(rand.NewSource(l.seedFor(epoch, -2-nb))), raw)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}
