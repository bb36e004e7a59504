package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
)

// ResolveInputs expands listing arguments into JSON files. An argument may
// be a file, a directory (walked for *.json) or a doublestar glob such as
// "exports/**/*.json". The result is sorted and free of duplicates.
func ResolveInputs(args []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[{") {
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no listing files match %s", arg)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat listings input: %w", err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				name := d.Name()
				if path != arg && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".json") {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadListings decodes every file as a list of platform listings, in file
// order.
func LoadListings(platform listing.Platform, paths []string) ([]listing.Listing, error) {
	var out []listing.Listing
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		items, err := listing.Decode(platform, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, items...)
	}
	return out, nil
}
