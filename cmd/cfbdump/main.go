// Command cfbdump prints the header geometry and directory tree of a
// compound file binary container.
package main

import (
	"fmt"
	"os"

	"github.com/cfbfs/cfbfs"
)

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		fmt.Println("usage: cfbdump <file>")
		os.Exit(1)
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()

	fs, err := cfbfs.Mount(cfbfs.NewDevice(f), cfbfs.Permissive)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("version: %v\n", fs.HeaderVersion())
	fmt.Printf("sector size: %d\n", fs.SectorSize())

	printTree(fs, fs.RootChildID(), "")
}

func printTree(fs *cfbfs.Filesystem, childID uint32, indent string) {
	for _, entry := range fs.EntriesUnder(childID) {
		fmt.Printf("%s%s\n", indent, entry.Name.String())
		if entry.Type == cfbfs.Directory {
			printTree(fs, entry.ChildID, indent+"  ")
		}
	}
}
