// cosmetictool is a CLI utility for inspecting cosmetic assets and worn sets
// without a window.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "list", "ls":
		err = cmdList(args)
	case "inspect", "info":
		err = cmdInspect(args)
	case "mask":
		err = cmdMask(args)
	case "atlas":
		err = cmdAtlas(args)
	case "clip":
		err = cmdClip(args)
	case "play":
		err = cmdPlay(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cosmetictool - cosmetic asset utility

Usage:
  cosmetictool <command> [options]

Commands:
  list    [-assets dir]... [pattern]        List cosmetics (optional glob pattern)
  inspect [-assets dir]... <id>             Show bones, animations and triggers
  mask    [-o file.webp] <loadout.yaml>     Dump the merged skin mask of a worn set
  atlas   [-o file.webp] <loadout.yaml>     Dump the translucent atlas of a worn set
  clip    <loadout.yaml>                    Report faces kept and clipped per slot
  play    [-t seconds] [-fps n] <loadout.yaml>  Step the worn set and print events

Examples:
  cosmetictool list -assets ./assets "hats/*"
  cosmetictool inspect -assets ./assets hats/crown
  cosmetictool mask -o mask.webp outfit.yaml`)
}
