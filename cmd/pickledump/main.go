// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// pickledump inspects pickle streams: preamble, raw bytes and embedded
// UTF-16 string blobs.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	mmap "github.com/edsrzf/mmap-go"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/unicode"

	"github.com/saferwall/pickle"
)

var (
	hexBytes    int
	wantUTF16   bool
	wantVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pickledump <file>",
		Short: "Dump the contents of a pickle stream",
		Args:  cobra.ExactArgs(1),
		RunE:  dump,
	}
	rootCmd.Flags().IntVar(&hexBytes, "hex", 0,
		"hex-dump the first N payload bytes")
	rootCmd.Flags().BoolVar(&wantUTF16, "utf16", false,
		"scan the payload for UTF-16 string blobs")
	rootCmd.Flags().BoolVar(&wantVerbose, "verbose", false,
		"dump the decoded header structure")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	// Memory map the file instead of using read/write.
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	defer data.Unmap()

	hdr, payload, err := pickle.ParseHeader(data)
	if err != nil {
		return err
	}

	fmt.Printf("pickle stream: %s\n", args[0])
	fmt.Printf("  magic          : %s\n", string(hdr.Magic[:]))
	fmt.Printf("  pickler version: %d.%d\n", hdr.PicklerMajor, hdr.PicklerMinor)
	fmt.Printf("  runtime version: %d.%d\n", hdr.RuntimeMajor, hdr.RuntimeMinor)
	fmt.Printf("  payload bytes  : %d\n", len(data)-payload)

	if wantVerbose {
		spew.Dump(hdr)
	}

	if hexBytes > 0 {
		n := hexBytes
		if n > len(data)-payload {
			n = len(data) - payload
		}
		fmt.Print(hex.Dump(data[payload : payload+n]))
	}

	if wantUTF16 {
		printUTF16Strings(data[payload:])
	}
	return nil
}

// printUTF16Strings decodes the payload as UTF-16LE and prints printable
// runs, the way raw-value field blobs carry user strings.
func printUTF16Strings(data []byte) {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	decoded, err := decoder.Bytes(data)
	if err != nil {
		return
	}
	var run strings.Builder
	flush := func() {
		if run.Len() >= 4 {
			fmt.Printf("  utf16: %s\n", run.String())
		}
		run.Reset()
	}
	for _, r := range string(decoded) {
		if r >= 0x20 && r < 0x7f {
			run.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
}
