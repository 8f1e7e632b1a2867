// Package transcript turns a directory of earnings-call transcripts into
// per-company groups keyed by the stock symbol embedded in each filename.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches names like AAPL_Q1_2023.txt. The first group is the
// stock symbol; the remaining groups are quarter, year and extension.
const DefaultPattern = `^([A-Z][A-Z0-9.\-]*)_Q([1-4])_(\d{4})\.(txt|md|pdf)$`

var (
	// ErrInvalidFilename is returned when a name does not match the pattern.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrNotAFile is returned when a directory entry is not a regular file.
	ErrNotAFile = errors.New("not a regular file")
)

// File is a transcript path together with the metadata parsed from its name.
type File struct {
	Path   string
	Name   string
	Symbol string
	// Fields holds every capture group after the symbol, in pattern order.
	Fields []string
}

// Group is the ordered list of transcript paths of one company.
type Group struct {
	Symbol string
	Paths  []string
}

// Parser extracts company symbols from transcript filenames.
type Parser struct {
	re     *regexp.Regexp
	ignore []string
}

// NewParser compiles pattern. The pattern must capture the symbol as its
// first group. Names matching any of the ignore globs are skipped by GroupDir.
func NewParser(pattern string, ignore []string) (*Parser, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile filename pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("filename pattern %q has no capture group for the symbol", pattern)
	}
	for _, g := range ignore {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid ignore glob %q", g)
		}
	}
	return &Parser{re: re, ignore: ignore}, nil
}

// Parse matches a bare filename against the pattern.
func (p *Parser) Parse(name string) (File, error) {
	m := p.re.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return File{}, fmt.Errorf("%w: %s", ErrInvalidFilename, name)
	}
	fields := make([]string, len(m)-2)
	copy(fields, m[2:])
	return File{Name: name, Symbol: m[1], Fields: fields}, nil
}

// GroupDir lists the direct entries of dir and groups them by symbol.
// Groups come back in order of first sighting and each has at least one path.
// Any nested directory or unparsable name aborts the scan with no result.
func (p *Parser) GroupDir(dir string) ([]Group, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read transcripts dir: %w", err)
	}
	var groups []Group
	index := make(map[string]int)
	for _, e := range entries {
		if p.ignored(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !isRegular(path, e) {
			return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
		}
		f, err := p.Parse(e.Name())
		if err != nil {
			return nil, err
		}
		i, ok := index[f.Symbol]
		if !ok {
			i = len(groups)
			index[f.Symbol] = i
			groups = append(groups, Group{Symbol: f.Symbol})
		}
		groups[i].Paths = append(groups[i].Paths, path)
	}
	return groups, nil
}

// isRegular follows symlinks so a linked transcript counts as a file.
func isRegular(path string, e os.DirEntry) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (p *Parser) ignored(name string) bool {
	for _, g := range p.ignore {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
	}
	return false
}
