// Command trptool inspects and converts TitanRoof project files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"titanroof/internal/annotation"
	"titanroof/internal/config"
	"titanroof/internal/document"
	"titanroof/internal/project"
)

const usage = `Usage:
  trptool inspect <file.trp>
  trptool upgrade [-o out.trp] <file.trp>
  trptool extract-autosave [-db autosave.db] [-config titanroof.toml] <out.trp>
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "inspect":
		err = inspect(args[1:], stdout)
	case "upgrade":
		err = upgrade(args[1:], stdout)
	case "extract-autosave":
		err = extractAutosave(args[1:], stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "trptool: %v\n", err)
		return 1
	}
	return 0
}

func inspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("inspect needs one project file")
	}
	snap, err := project.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	printSummary(out, snap)
	return nil
}

func printSummary(out io.Writer, snap *project.Snapshot) {
	fmt.Fprintf(out, "Residence:   %s\n", snap.ResidenceName)
	fmt.Fprintf(out, "Front faces: %s\n", snap.FrontFaces)
	fmt.Fprintf(out, "Roof:        %s\n", snap.Roof.Summary())
	fmt.Fprintf(out, "Exterior:    %d photo(s)\n", len(snap.ExteriorPhotos))

	perPage := make(map[string]int)
	for _, it := range snap.Items {
		perPage[it.PageID]++
	}
	fmt.Fprintf(out, "\nPages (%d):\n", len(snap.Pages))
	for i, p := range snap.Pages {
		active := " "
		if p.ID == snap.ActivePageID {
			active = "*"
		}
		fmt.Fprintf(out, "%s %2d. %-24s %-6s %3d°  %d item(s)\n",
			active, i+1, p.Name, visualName(document.ActiveVisual(p)), p.Rotation, perPage[p.ID])
	}

	byType := make(map[annotation.Type]int)
	for _, it := range snap.Items {
		byType[it.Type]++
	}
	counts := snap.Counters()
	fmt.Fprintf(out, "\nItems (%d):\n", len(snap.Items))
	for _, t := range annotation.Types {
		fmt.Fprintf(out, "  %-14s %3d  (next #%d)\n", t.Label(), byType[t], counts[t]+1)
	}
}

func visualName(v document.Visual) string {
	switch v {
	case document.VisualMap:
		return "map"
	case document.VisualNone:
		return "blank"
	}
	return "image"
}

func upgrade(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("upgrade", flag.ContinueOnError)
	fs.SetOutput(out)
	output := fs.String("o", "", "output path (default: overwrite the input)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("upgrade needs one project file")
	}
	in := fs.Arg(0)
	snap, err := project.Load(in)
	if err != nil {
		return err
	}
	dest := *output
	if dest == "" {
		dest = in
	}
	if err := project.Save(dest, snap); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s: %d page(s), %d item(s)\n", dest, len(snap.Pages), len(snap.Items))
	return nil
}

func extractAutosave(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("extract-autosave", flag.ContinueOnError)
	fs.SetOutput(out)
	db := fs.String("db", "", "autosave database (default: from config)")
	configPath := fs.String("config", "", "path to titanroof.toml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("extract-autosave needs an output file")
	}

	path := *db
	if path == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		path = cfg.DatabasePath()
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("autosave database: %w", err)
	}

	store, err := project.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, savedAt, err := store.LoadSnapshot(context.Background())
	if err != nil {
		return err
	}
	if err := project.Save(fs.Arg(0), snap); err != nil {
		return err
	}
	fmt.Fprintf(out, "Extracted autosave from %s (saved %s) to %s\n",
		path, savedAt.Local().Format(time.DateTime), fs.Arg(0))
	return nil
}
