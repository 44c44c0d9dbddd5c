// Package catalog loads the canonical item list a session is seeded from.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed principles.yaml
var defaultDocument []byte

// Entry is one catalog item.
type Entry struct {
	Name string `yaml:"name" json:"name"`
	Desc string `yaml:"desc" json:"desc"`
}

// Encouragement is shown once the session has at least Judgments entries.
type Encouragement struct {
	Judgments int    `yaml:"judgments" json:"judgments"`
	Text      string `yaml:"text" json:"text"`
}

// Catalog is the ordered item list with its display metadata.
type Catalog struct {
	Title          string          `yaml:"title"`
	Encouragements []Encouragement `yaml:"encouragements"`
	Items          []Entry         `yaml:"items"`

	defs map[string]string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(c.Encouragements, func(i, j int) bool {
		return c.Encouragements[i].Judgments < c.Encouragements[j].Judgments
	})
	return &c, nil
}

func (c *Catalog) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidCatalog)
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}
	c.defs = make(map[string]string, len(c.Items))
	for i, e := range c.Items {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidCatalog, i)
		}
		if _, dup := c.defs[e.Name]; dup {
			return fmt.Errorf("%w: duplicate item %q", ErrInvalidCatalog, e.Name)
		}
		c.defs[e.Name] = e.Desc
	}
	return nil
}

// Names returns the item names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Items))
	for i, e := range c.Items {
		out[i] = e.Name
	}
	return out
}

// Definition returns the description of name, or "" if unknown.
func (c *Catalog) Definition(name string) string {
	return c.defs[name]
}

// Encouragement returns the text for the highest threshold reached by n
// judgments, or "" if none applies.
func (c *Catalog) Encouragement(n int) string {
	text := ""
	for _, e := range c.Encouragements {
		if n >= e.Judgments {
			text = e.Text
		}
	}
	return text
}
