package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pulsekit/go-pulse/canon"
	"github.com/pulsekit/go-pulse/dsl"
	"github.com/pulsekit/go-pulse/wave"
)

func inspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pulse inspect <expression>

Parse a waveform expression and print its canonical form, fingerprint
and tree size.

Examples:
  pulse inspect "t + gaussian(1, 0) + gaussian(1, 0)"
  pulse inspect "shift(square(-1, 1), 0.5)"
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("expression required")
	}

	expr, err := dsl.Parse(fs.Arg(0))
	if err != nil {
		return err
	}
	ce := canon.Canonicalize(expr)

	fmt.Printf("parsed:      %s\n", wave.Format(expr))
	fmt.Printf("canonical:   %s\n", wave.Format(ce))
	fmt.Printf("fingerprint: %s\n", wave.FingerprintString(ce))
	fmt.Printf("nodes:       %d (canonical %d)\n", wave.NodeCount(expr), wave.NodeCount(ce))
	fmt.Printf("depth:       %d (canonical %d)\n", wave.Depth(expr), wave.Depth(ce))
	return nil
}
