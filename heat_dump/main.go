package main

import (
	"fmt"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/model-collapse/heat-serv/conf"
	"github.com/model-collapse/heat-serv/dataset"
)

func dumpSample(log logs.Log, ds *dataset.Dataset, idx int, rng *rand.Rand, dir string, thumb int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			log.Errorf("Panic on sample %d = %v, stack = %s", idx, e, debug.Stack())
			err = fmt.Errorf("panic: %v", e)
		}
	}()

	s, err := ds.Sample(idx, rng)
	if err != nil {
		return err
	}
	defer s.Close()

	out := thumbnail(renderSample(s), thumb)

	fn := filepath.Join(dir, fmt.Sprintf("%06d.png", idx))
	fw, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer fw.Close()

	return png.Encode(fw, out)
}

// dumpAll renders every sample with a pool of workers and returns how many
// failed.
func dumpAll(log logs.Log, ds *dataset.Dataset, workers int, seed int64, augment bool, dir string, thumb int) int {
	chIdx := make(chan int, 100)
	go func() {
		for i := 0; i < ds.Len(); i++ {
			chIdx <- i
		}

		close(chIdx)
	}()

	var mu sync.Mutex
	failed := 0
	wg := sync.WaitGroup{}
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			for idx := range chIdx {
				var rng *rand.Rand
				if augment {
					rng = rand.New(rand.NewSource(seed + int64(idx)))
				}
				if err := dumpSample(log, ds, idx, rng, dir, thumb); err != nil {
					log.Warnf("Sample %d: %v", idx, err)
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}

			wg.Done()
		}()
	}

	wg.Wait()
	return failed
}

func main() {
	parser := argparse.NewParser("heat_dump", "Render every sample of a dataset with its keypoint heatmaps")
	configPath := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: "./conf.json"})
	outDir := parser.String("o", "output", &argparse.Options{Help: "Output directory", Default: "dump"})
	thumb := parser.Int("t", "thumb", &argparse.Options{Help: "Scale images so the long side is at most this many pixels (0 keeps size)", Default: 0})
	augment := parser.Flag("a", "augment", &argparse.Options{Help: "Apply the configured augmentation", Default: false})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	c, err := conf.Load(*configPath)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	ds, err := c.Dataset(log)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	dir := filepath.Join(*outDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	log.Infof("#samples = %d, #classes = %d, writing to %s", ds.Len(), len(ds.Classes()), dir)
	failed := dumpAll(log, ds, max(1, c.Workers), c.Seed, *augment, dir, *thumb)
	log.Infof("Done, %d of %d samples failed", failed, ds.Len())
}
