package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"gocv.io/x/gocv"

	http "github.com/valyala/fasthttp"
)

var (
	logger logs.Log
	scene  *Scene
)

func initialize(configPath string) (err error) {
	if err = LoadConfig(configPath); err != nil {
		return
	}

	ds, err := GConf.Dataset(logger)
	if err != nil {
		return
	}
	if ds.Len() == 0 {
		return fmt.Errorf("manifest %s has no images", GConf.Manifest)
	}
	scene = &Scene{ds: ds}
	return
}

// requestRand seeds from the "seed" query arg, or randomly. augment=false
// turns augmentation off.
func requestRand(args *http.Args) *rand.Rand {
	if string(args.Peek("augment")) == "false" {
		return nil
	}
	seed, err := args.GetUint("seed")
	if err != nil {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(int64(seed)))
}

func requestIndex(c *http.RequestCtx) (int, bool) {
	args := c.URI().QueryArgs()
	if !args.Has("index") {
		return scene.randomID(), true
	}
	idx, err := args.GetUint("index")
	if err != nil || scene.checkIndex(idx) != nil {
		c.Error(fmt.Sprintf("invalid index %q", args.Peek("index")), http.StatusBadRequest)
		return 0, false
	}
	return idx, true
}

func writeJPEG(c *http.RequestCtx, img gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		logger.Errorf("Err [encode] %v", err)
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}
	defer buf.Close()

	c.SetContentType("image/jpeg")
	c.Write(buf.GetBytes())
}

func handleInfo(c *http.RequestCtx) {
	info := map[string]interface{}{
		"length":     scene.ds.Len(),
		"classes":    scene.ds.Classes(),
		"image_size": GConf.ImageSize,
	}
	data, err := json.Marshal(info)
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}
	c.SetContentType("application/json")
	c.Write(data)
}

func handleSample(c *http.RequestCtx) {
	idx, ok := requestIndex(c)
	if !ok {
		return
	}
	args := c.URI().QueryArgs()
	box := string(args.Peek("box")) == "true"

	img, err := scene.Generate(idx, requestRand(args), box)
	if err != nil {
		logger.Errorf("Err [sample %d] %v", idx, err)
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}
	defer img.Close()
	writeJPEG(c, img)
}

func handleHeatmap(c *http.RequestCtx) {
	idx, ok := requestIndex(c)
	if !ok {
		return
	}
	args := c.URI().QueryArgs()
	class, err := args.GetUint("class")
	if err != nil || class >= len(scene.ds.Classes()) {
		c.Error(fmt.Sprintf("invalid class %q", args.Peek("class")), http.StatusBadRequest)
		return
	}

	img, err := scene.Heatmap(idx, class, requestRand(args))
	if err != nil {
		logger.Errorf("Err [heatmap %d/%d] %v", idx, class, err)
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}
	defer img.Close()
	writeJPEG(c, img)
}

func handle(c *http.RequestCtx) {
	switch string(c.Path()) {
	case "/info":
		handleInfo(c)
	case "/sample":
		handleSample(c)
	case "/heatmap":
		handleHeatmap(c)
	default:
		c.Error("not found", http.StatusNotFound)
	}
}

func main() {
	parser := argparse.NewParser("heat-serv", "Preview augmented samples and keypoint heatmaps")
	configPath := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: "./conf.json"})
	listen := parser.String("l", "listen", &argparse.Options{Help: "Listen address, overrides the config", Default: ""})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	var err error
	if logger, err = logs.NewLog(); err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := initialize(*configPath); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *listen != "" {
		GConf.Listen = *listen
	}

	logger.Infof("Serving %d samples on %s...", scene.ds.Len(), GConf.Listen)
	if err := http.ListenAndServe(GConf.Listen, handle); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
