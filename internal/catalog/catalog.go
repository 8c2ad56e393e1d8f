// Package catalog holds the static data the seeder draws from: account
// names, categories, word lists and the category compatibility rules.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"storeseed/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

// ChoicePlaceholder names the placeholder that draws from a rule's own choices.
const ChoicePlaceholder = "choice"

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Catalog is the static input of a seeding run.
type Catalog struct {
	Users       []string            `yaml:"users"`
	Password    string              `yaml:"password"`
	EmailDomain string              `yaml:"email_domain"`
	Categories  []models.Category   `yaml:"categories"`
	Words       map[string][]string `yaml:"words"`
	Description string              `yaml:"description"`
	Rules       map[string]Rule     `yaml:"rules"`
	Fallback    Rule                `yaml:"fallback"`
}

// Rule describes how products of one primary category are named and which
// categories may be attached as the related one.
type Rule struct {
	Template string   `yaml:"template"`
	Choices  []string `yaml:"choices"`
	Related  []string `yaml:"related"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Validate checks that every template can be rendered.
func (c *Catalog) Validate() error {
	if len(c.Users) == 0 {
		return errors.New("no users")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if c.EmailDomain == "" {
		return errors.New("email_domain is required")
	}
	if len(c.Categories) == 0 {
		return errors.New("no categories")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return errors.New("category with empty name")
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
	}
	if strings.Count(c.Description, "%s") != 1 {
		return fmt.Errorf("description must contain exactly one %%s, got %q", c.Description)
	}
	for name, rule := range c.Rules {
		if err := c.checkRule(rule); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
	}
	if err := c.checkRule(c.Fallback); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	return nil
}

func (c *Catalog) checkRule(r Rule) error {
	if strings.TrimSpace(r.Template) == "" {
		return errors.New("empty template")
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(r.Template, -1) {
		name := m[1]
		if name == ChoicePlaceholder {
			if len(r.Choices) == 0 {
				return errors.New("template uses {choice} but has no choices")
			}
			continue
		}
		if len(c.Words[name]) == 0 {
			return fmt.Errorf("unknown or empty word list {%s}", name)
		}
	}
	return nil
}

// RuleFor returns the rule of a primary category, or the fallback rule.
func (c *Catalog) RuleFor(category string) Rule {
	if r, ok := c.Rules[category]; ok {
		return r
	}
	return c.Fallback
}

// Describe returns the product description for a primary category.
func (c *Catalog) Describe(category string) string {
	return fmt.Sprintf(c.Description, category)
}

// Render fills the template placeholders using pick to choose one word from
// each list. Every placeholder occurrence draws independently.
func (r Rule) Render(words map[string][]string, pick func([]string) string) string {
	return placeholderRe.ReplaceAllStringFunc(r.Template, func(token string) string {
		name := token[1 : len(token)-1]
		if name == ChoicePlaceholder {
			return pick(r.Choices)
		}
		if list := words[name]; len(list) > 0 {
			return pick(list)
		}
		return token
	})
}
