// Command fcmp compresses and extracts files using the fcmp context-mixing
// arithmetic coder.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"

	"fcmp"
	"fcmp/search"

	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"
)

// config is the optional HuJSON config file shape; HuJSON (JSON with
// comments and trailing commas) lets the file carry per-field documentation
// without breaking a strict JSON parser downstream.
type config struct {
	Threads   int `json:"threads"`
	Verbosity int `json:"verbosity"`
}

func main() {
	var (
		force       bool
		extractMode bool
		output      string
		configPath  string
		threads     int
		verbosity   int
	)
	pflag.BoolVarP(&force, "force", "f", false, "force overwrite of existing output file")
	pflag.BoolVarP(&extractMode, "extract", "x", false, "extract a compressed file instead of compressing")
	pflag.StringVarP(&output, "output", "o", "", "output file path (default derived from the input path)")
	pflag.StringVarP(&configPath, "config", "c", "", "path to a HuJSON config file overriding search options")
	pflag.IntVarP(&threads, "threads", "t", 0, "worker thread count (0 selects the number of CPUs)")
	pflag.IntVarP(&verbosity, "verbose", "v", 0, "trace verbosity")
	pflag.Parse()

	opts := search.Options{Threads: threads, Verbosity: verbosity}
	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("%+v", err)
		}
		if cfg.Threads != 0 {
			opts.Threads = cfg.Threads
		}
		if cfg.Verbosity != 0 {
			opts.Verbosity = cfg.Verbosity
		}
	}
	if len(pflag.Args()) == 0 {
		log.Fatal("fcmp: no input files given")
	}

	for _, path := range pflag.Args() {
		var err error
		if extractMode {
			err = extractFile(path, output, force)
		} else {
			err = compressFile(path, output, force, opts)
		}
		if err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// loadConfig reads and decodes a HuJSON config file.
func loadConfig(path string) (config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return config{}, errors.WithStack(err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return config{}, errors.Wrapf(err, "parsing config %q", path)
	}
	var cfg config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return config{}, errors.Wrapf(err, "decoding config %q", path)
	}
	return cfg, nil
}

func compressFile(inputPath, output string, force bool, opts search.Options) error {
	outPath := output
	if outPath == "" {
		outPath = inputPath + ".fcmp"
	}
	exists, err := osutil.Exists(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !force && exists {
		return errors.Errorf("output file %q already present; use -f to force overwrite", outPath)
	}

	data, err := ioutil.ReadFile(inputPath)
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println("compressing", inputPath)
	coded, err := fcmp.Compress(data, opts)
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("%d bytes -> %d bytes\n", len(data), len(coded))
	return atomic.WriteFile(outPath, bytes.NewReader(coded))
}

func extractFile(inputPath, output string, force bool) error {
	outPath := output
	if outPath == "" {
		outPath = pathutil.TrimExt(inputPath)
		if outPath == inputPath {
			outPath = inputPath + ".out"
		}
	}
	exists, err := osutil.Exists(outPath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !force && exists {
		return errors.Errorf("output file %q already present; use -f to force overwrite", outPath)
	}

	data, err := ioutil.ReadFile(inputPath)
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println("extracting", inputPath)
	decoded, err := fcmp.Extract(data)
	if err != nil {
		return errors.WithStack(err)
	}
	return atomic.WriteFile(outPath, bytes.NewReader(decoded))
}
