// Package main provides the pax checkpoint inspection CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/nirum/pax/internal/container"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("pax %s\n", version)

	case "ls":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: pax ls <file>")
			os.Exit(2)
		}
		if err := list(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "pax: %v\n", err)
			os.Exit(1)
		}

	case "info":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: pax info <file>")
			os.Exit(2)
		}
		if err := info(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "pax: %v\n", err)
			os.Exit(1)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("pax - pytree checkpoint files")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version         Show version")
	fmt.Println("  info <file>     Show format version and node counts")
	fmt.Println("  ls <file>       List the node tree")
}

// list prints the node tree of a container file, one node per line.
func list(path string) error {
	r, err := container.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	meta := r.Meta()
	return printNode(&meta, 0)
}

func printNode(meta *container.NodeMeta, depth int) error {
	indent := strings.Repeat("  ", depth)
	name := meta.Name
	if name == "" {
		name = "/"
	}

	switch meta.Kind {
	case container.KindGroup:
		tag := meta.Attrs["type"]
		if tag != "" {
			fmt.Printf("%s%s/ (type=%s)\n", indent, name, tag)
		} else {
			fmt.Printf("%s%s/\n", indent, name)
		}
		for i := range meta.Children {
			if err := printNode(&meta.Children[i], depth+1); err != nil {
				return err
			}
		}
	case container.KindDataset:
		fmt.Printf("%s%s  %s%v (%d bytes)\n", indent, name, meta.DType, meta.Shape, meta.Size)
	default:
		return fmt.Errorf("node %q: unknown kind %q", meta.Name, meta.Kind)
	}
	return nil
}

// info prints summary statistics for a container file.
func info(path string) error {
	r, err := container.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	meta := r.Meta()
	groups, datasets, bytes := 0, 0, int64(0)
	countNodes(&meta, &groups, &datasets, &bytes)

	fmt.Printf("format version: %d\n", r.Version())
	fmt.Printf("groups:         %d\n", groups)
	fmt.Printf("datasets:       %d\n", datasets)
	fmt.Printf("data bytes:     %d\n", bytes)
	return nil
}

func countNodes(meta *container.NodeMeta, groups, datasets *int, bytes *int64) {
	switch meta.Kind {
	case container.KindGroup:
		*groups++
		for i := range meta.Children {
			countNodes(&meta.Children[i], groups, datasets, bytes)
		}
	case container.KindDataset:
		*datasets++
		*bytes += meta.Size
	}
}
