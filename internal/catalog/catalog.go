// Package catalog serves the fixed marketing copy that is not editable
// from the admin screens: services, industries, tools and process steps.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	// ErrServiceNotFound is returned for an unknown service id.
	ErrServiceNotFound = errors.New("service not found")
)

// Solution is one use case of a service within an industry.
type Solution struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// ServiceIndustry groups the solutions a service offers one industry.
type ServiceIndustry struct {
	Name      string     `yaml:"name"`
	Solutions []Solution `yaml:"solutions"`
}

// Service is one offering with its detail page content.
type Service struct {
	ID              string            `yaml:"id"`
	Title           string            `yaml:"title"`
	Summary         string            `yaml:"summary"`
	Description     string            `yaml:"description"`
	Icon            string            `yaml:"icon"`
	LongDescription string            `yaml:"long_description"`
	Benefits        []string          `yaml:"benefits"`
	Industries      []ServiceIndustry `yaml:"industries"`
}

// Path is the detail page URL.
func (s Service) Path() string {
	return "/service/" + s.ID
}

// IndustrySolution links an industry to a service.
type IndustrySolution struct {
	Service     string `yaml:"service"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Path is the linked service's detail page URL.
func (s IndustrySolution) Path() string {
	return "/service/" + s.Service
}

// Industry is one entry of the industry helper page.
type Industry struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Benefits    []string           `yaml:"benefits"`
	Solutions   []IndustrySolution `yaml:"solutions"`
}

// Tool is a third-party product the studio works with.
type Tool struct {
	Name        string `yaml:"name"`
	Logo        string `yaml:"logo"`
	Description string `yaml:"description"`
}

// Step is one stage of the engagement process.
type Step struct {
	Number          string `yaml:"number"`
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	LongDescription string `yaml:"long_description"`
}

// Catalog is the decoded copy.
type Catalog struct {
	Services   []Service  `yaml:"services"`
	Industries []Industry `yaml:"industries"`
	Tools      []Tool     `yaml:"tools"`
	Process    []Step     `yaml:"process"`

	byID map[string]int
}

// Load decodes the embedded catalog and checks its cross references.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse decodes raw catalog YAML.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c.byID = make(map[string]int, len(c.Services))
	for i, svc := range c.Services {
		if svc.ID == "" {
			return nil, fmt.Errorf("catalog service %d has no id", i)
		}
		if _, dup := c.byID[svc.ID]; dup {
			return nil, fmt.Errorf("catalog service %q listed twice", svc.ID)
		}
		c.byID[svc.ID] = i
	}
	for _, industry := range c.Industries {
		for _, solution := range industry.Solutions {
			if _, ok := c.byID[solution.Service]; !ok {
				return nil, fmt.Errorf("industry %q links unknown service %q", industry.Name, solution.Service)
			}
		}
	}
	return &c, nil
}

// MustLoad is Load for program start; it panics on a broken embed.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Service returns the service with id.
func (c *Catalog) Service(id string) (Service, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Service{}, ErrServiceNotFound
	}
	return c.Services[idx], nil
}
