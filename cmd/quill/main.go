// Package main provides the quill language model CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/quill-ml/quill/checkpoint"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("quill %s\n", version)
			return
		case "inspect":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: quill inspect <checkpoint>")
				os.Exit(1)
			}
			if err := inspect(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "quill: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("quill - a small GPT language model in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version              Show version")
	fmt.Println("  inspect <checkpoint> Print checkpoint header")
}

func inspect(path string) error {
	hdr, err := checkpoint.ReadHeader(path)
	if err != nil {
		return err
	}

	fmt.Printf("format version: %d\n", hdr.FormatVersion)
	if !hdr.CreatedAt.IsZero() {
		fmt.Printf("created at:     %s\n", hdr.CreatedAt.Format(time.RFC3339))
	}
	c := hdr.Config
	fmt.Printf("config:         block_size=%d vocab_size=%d n_layer=%d n_head=%d n_embed=%d pos=%s\n",
		c.BlockSize, c.VocabSize, c.NLayer, c.NHead, c.NEmbed, c.PosEncoding)
	fmt.Printf("tensors:        %d\n", len(hdr.Tensors))
	for _, t := range hdr.Tensors {
		fmt.Printf("  %-32s %-8s %v\n", t.Name, t.DType, t.Shape)
	}
	return nil
}
