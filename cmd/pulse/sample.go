package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pulsekit/go-pulse/config"
	"github.com/pulsekit/go-pulse/engine"
)

func sample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	start := fs.Float64("start", 0.0, "Start time of the sampling grid")
	rate := fs.Float64("rate", 1e9, "Sample rate in Hz")
	length := fs.Int("length", 1000, "Number of samples")
	cfgPath := fs.String("config", "", "Config file (YAML, optional)")
	output := fs.String("output", "", "Output file (default stdout)")
	verbose := fs.Bool("verbose", false, "Log compilation details to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pulse sample <expression> [options]

Compile a waveform expression and print one sample value per line.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # A gated gaussian over 2 us at 1 GS/s
  pulse sample "gaussian(100e-9, 0) * shift(square(-1e-6, 1e-6), 0.5e-6)" --start -1e-6 --rate 1e9 --length 2000

  # Write to a file
  pulse sample "sin(5e6, 0)" --length 4000 --output samples.txt
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("expression required")
	}

	eng, err := buildEngine(*cfgPath, *verbose)
	if err != nil {
		return err
	}

	samples, err := eng.SampleText(fs.Arg(0), *start, *rate, *length)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	for _, v := range samples {
		fmt.Fprintln(w, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return nil
}

func buildEngine(cfgPath string, verbose bool) (*engine.Engine, error) {
	cfg, err := loadConfig(cfgPath, verbose)
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}
	return engine.NewFromConfig(cfg, log)
}

// loadConfig reads the config file when one is given. Verbose forces the
// log level to debug so compile logs appear regardless of the file's
// level setting.
func loadConfig(path string, verbose bool) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
