package genome

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed seeds/*.gen
var seedFS embed.FS

// Seeds compiles the built-in seed programs in name order.
func Seeds(cat *Catalog) ([]*Genome, error) {
	names, err := fs.Glob(seedFS, "seeds/*.gen")
	if err != nil {
		return nil, err
	}
	out := make([]*Genome, 0, len(names))
	for _, name := range names {
		f, err := seedFS.Open(name)
		if err != nil {
			return nil, err
		}
		p, err := Compile(path.Base(name), f, cat)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CompileFile compiles a genome source file from disk.
func CompileFile(name string, cat *Catalog) (*Genome, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening genome: %w", err)
	}
	defer f.Close()
	return Compile(filepath.Base(name), f, cat)
}
