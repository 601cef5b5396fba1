package trivia

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

//go:embed questions.yaml
var defaultBankYAML []byte

// Question is one prompt and its expected answer.
type Question struct {
	Text   string `yaml:"q" json:"question"`
	Answer string `yaml:"a" json:"answer"`
}

type bankFile struct {
	Fallback   string                        `yaml:"fallback"`
	Categories map[string]map[int][]Question `yaml:"categories"`
}

// Bank is a static table of questions by category and level.
type Bank struct {
	fallback   string
	categories map[string]map[int][]Question

	mu  sync.Mutex
	rnd *rand.Rand
}

// DefaultBank returns the built-in question bank.
func DefaultBank() (*Bank, error) {
	return ParseBank(defaultBankYAML)
}

// LoadBank reads a YAML bank from path, or the built-in bank when path is
// empty.
func LoadBank(path string) (*Bank, error) {
	if path == "" {
		return DefaultBank()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseBank(data)
}

// ParseBank decodes a YAML bank.
func ParseBank(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("question bank has no categories")
	}
	for name, levels := range f.Categories {
		if len(levels[MinLevel]) == 0 {
			return nil, fmt.Errorf("category %s: level %d has no questions", name, MinLevel)
		}
	}
	if _, ok := f.Categories[f.Fallback]; !ok {
		return nil, fmt.Errorf("fallback category %q not in bank", f.Fallback)
	}
	return &Bank{
		fallback:   f.Fallback,
		categories: f.Categories,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Categories lists the category names in sorted order.
func (b *Bank) Categories() []string {
	out := make([]string, 0, len(b.categories))
	for name := range b.categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether category exists.
func (b *Bank) Has(category string) bool {
	_, ok := b.categories[category]
	return ok
}

// Pick returns a random question for category at level. Unknown categories
// use the fallback category; levels are clamped and levels without
// questions use level 1.
func (b *Bank) Pick(category string, level int) Question {
	levels, ok := b.categories[category]
	if !ok {
		levels = b.categories[b.fallback]
	}
	pool := levels[ClampLevel(level)]
	if len(pool) == 0 {
		pool = levels[MinLevel]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return pool[b.rnd.Intn(len(pool))]
}

// RandomCategory picks any category.
func (b *Bank) RandomCategory() string {
	names := b.Categories()
	b.mu.Lock()
	defer b.mu.Unlock()
	return names[b.rnd.Intn(len(names))]
}

// RandomLevel picks a level in range.
func (b *Bank) RandomLevel() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return MinLevel + b.rnd.Intn(MaxLevel-MinLevel+1)
}

// ClampLevel forces level into the supported range.
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
