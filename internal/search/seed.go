package search

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedWine is one wine in a seed file.
type SeedWine struct {
	Name     string  `yaml:"name"`
	Producer string  `yaml:"producer"`
	Vintage  int     `yaml:"vintage"`
	Region   string  `yaml:"region"`
	Grape    string  `yaml:"grape"`
	Type     string  `yaml:"type"`
	Price    float64 `yaml:"price"`
	Ratings  []int   `yaml:"ratings"`
}

// SeedVenue is a venue and its list.
type SeedVenue struct {
	Name  string     `yaml:"name"`
	City  string     `yaml:"city"`
	Wines []SeedWine `yaml:"wines"`
}

type seedFile struct {
	Venues []SeedVenue `yaml:"venues"`
}

// LoadSeed reads a wine list from path. Files ending in .yaml or .yml are
// parsed as YAML; anything else is treated as markdown.
func LoadSeed(path string) ([]SeedVenue, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAMLSeed(bytes.NewReader(b))
	default:
		return ParseMarkdownSeed(bytes.NewReader(b))
	}
}

// ParseYAMLSeed decodes a document of the form {venues: [{name, wines: [...]}]}.
func ParseYAMLSeed(r io.Reader) ([]SeedVenue, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml seed: %w", err)
	}
	return cleanSeed(f.Venues)
}

// ParseMarkdownSeed reads venues from markdown. Each heading starts a venue;
// the first table under it lists the wines. Column names are matched
// case-insensitively (name, producer, vintage, region, grape, type, price,
// ratings); separator rows are skipped and cells are trimmed.
func ParseMarkdownSeed(r io.Reader) ([]SeedVenue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		venues []SeedVenue
		cur    *SeedVenue
		cols   []string // nil until a header row is seen
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			venues = append(venues, SeedVenue{Name: strings.TrimSpace(strings.TrimLeft(line, "#"))})
			cur = &venues[len(venues)-1]
			cols = nil
		case strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|"):
			cells := splitRow(line)
			if isSeparatorRow(cells) {
				continue
			}
			if cur == nil {
				return nil, fmt.Errorf("line %d: table before any venue heading", lineNo)
			}
			if cols == nil {
				cols = make([]string, len(cells))
				for i, c := range cells {
					cols[i] = strings.ToLower(c)
				}
				continue
			}
			w, err := wineFromRow(cols, cells)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.Wines = append(cur.Wines, w)
		case cur != nil && strings.HasPrefix(strings.ToLower(line), "city:"):
			cur.City = strings.TrimSpace(line[len("city:"):])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cleanSeed(venues)
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	out := make([]string, len(raw))
	for i, c := range raw {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		tmp := strings.ReplaceAll(c, ":", "")
		tmp = strings.ReplaceAll(tmp, "-", "")
		if strings.TrimSpace(tmp) != "" {
			return false
		}
	}
	return true
}

func wineFromRow(cols, cells []string) (SeedWine, error) {
	var w SeedWine
	for i, col := range cols {
		if i >= len(cells) {
			break
		}
		v := cells[i]
		if v == "" || v == "-" {
			continue
		}
		switch col {
		case "name", "wine":
			w.Name = v
		case "producer", "winery":
			w.Producer = v
		case "vintage", "year":
			y, err := strconv.Atoi(v)
			if err != nil {
				return w, fmt.Errorf("vintage %q: %w", v, err)
			}
			w.Vintage = y
		case "region", "appellation":
			w.Region = v
		case "grape", "grapes", "variety":
			w.Grape = v
		case "type", "color", "colour":
			w.Type = strings.ToLower(v)
		case "price":
			p, err := strconv.ParseFloat(strings.TrimLeft(v, "$€£ "), 64)
			if err != nil {
				return w, fmt.Errorf("price %q: %w", v, err)
			}
			w.Price = p
		case "ratings":
			for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
				n, err := strconv.Atoi(f)
				if err != nil {
					return w, fmt.Errorf("rating %q: %w", f, err)
				}
				w.Ratings = append(w.Ratings, n)
			}
		}
	}
	return w, nil
}

// cleanSeed drops unnamed venues and wines and validates what is left.
func cleanSeed(in []SeedVenue) ([]SeedVenue, error) {
	out := make([]SeedVenue, 0, len(in))
	for _, v := range in {
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			continue
		}
		wines := v.Wines[:0:0]
		for _, w := range v.Wines {
			w.Name = strings.TrimSpace(w.Name)
			if w.Name == "" {
				continue
			}
			if w.Price < 0 {
				return nil, fmt.Errorf("venue %q: wine %q has a negative price", v.Name, w.Name)
			}
			for _, r := range w.Ratings {
				if r < 1 || r > 5 {
					return nil, fmt.Errorf("venue %q: wine %q has rating %d outside 1..5", v.Name, w.Name, r)
				}
			}
			wines = append(wines, w)
		}
		v.Wines = wines
		out = append(out, v)
	}
	return out, nil
}
