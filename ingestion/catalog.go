package ingestion

import (
	"fmt"
	"os"
	"sort"

	"github.com/cbarlow/newsbrief/models"
	"gopkg.in/yaml.v3"
)

const (
	defaultCategory = "General"
	defaultPriority = 3
)

// Catalog is the configured set of feed sources. The built-in set below is
// the shipped default; a YAML file can replace it wholesale.
type Catalog struct {
	sources []models.Source
}

// defaultSources is the shipped feed set, ordered by editorial priority
// (lower fires first when a run limits its source count).
var defaultSources = []models.Source{
	{
		Name:     "TechCrunch AI",
		URL:      "https://techcrunch.com/category/artificial-intelligence/feed/",
		Category: "Industry News",
		Priority: 1,
		FallbackURLs: []string{
			"https://techcrunch.com/feed/",
		},
	},
	{
		Name:     "VentureBeat AI",
		URL:      "https://venturebeat.com/category/ai/feed/",
		Category: "Industry News",
		Priority: 1,
	},
	{
		Name:     "MIT Technology Review",
		URL:      "https://www.technologyreview.com/feed/",
		Category: "Research",
		Priority: 2,
	},
	{
		Name:     "Google AI Blog",
		URL:      "https://blog.google/technology/ai/rss/",
		Category: "Research",
		Priority: 1,
	},
	{
		Name:     "Wired AI",
		URL:      "https://www.wired.com/feed/tag/ai/latest/rss",
		Category: "Research",
		Priority: 2,
	},
	{
		Name:     "The Verge",
		URL:      "https://www.theverge.com/rss/index.xml",
		Category: "Industry News",
		Priority: 3,
	},
	{
		Name:     "Ars Technica",
		URL:      "https://feeds.arstechnica.com/arstechnica/index",
		Category: "Industry News",
		Priority: 2,
	},
	{
		Name:     "Hacker News",
		URL:      "https://news.ycombinator.com/rss",
		Category: "Developer",
		Priority: 3,
	},
	{
		Name:     "InfoQ AI & ML",
		URL:      "https://feed.infoq.com/ai-ml-data-eng/",
		Category: "Developer",
		Priority: 3,
	},
}

// DefaultCatalog returns the built-in source set.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultSources)
}

// LoadCatalog reads a YAML source list from path. An empty path returns the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file '%s': %w", path, err)
	}

	var doc struct {
		Sources []models.Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sources file '%s': %w", path, err)
	}
	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("sources file '%s' defines no sources", path)
	}

	for i := range doc.Sources {
		if doc.Sources[i].Name == "" {
			return nil, fmt.Errorf("sources file '%s': source %d has no name", path, i+1)
		}
		if doc.Sources[i].URL == "" {
			return nil, fmt.Errorf("sources file '%s': source %q has no url", path, doc.Sources[i].Name)
		}
		if doc.Sources[i].Category == "" {
			doc.Sources[i].Category = defaultCategory
		}
		if doc.Sources[i].Priority <= 0 {
			doc.Sources[i].Priority = defaultPriority
		}
	}

	return NewCatalog(doc.Sources), nil
}

// NewCatalog builds a catalog from an explicit source set, ordered by
// priority then name.
func NewCatalog(sources []models.Source) *Catalog {
	ordered := make([]models.Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].Name < ordered[j].Name
	})
	return &Catalog{sources: ordered}
}

// All returns every source in priority order.
func (c *Catalog) All() []models.Source {
	out := make([]models.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Names returns the source names in priority order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.sources))
	for i, src := range c.sources {
		names[i] = src.Name
	}
	return names
}

// ByCategory groups the sources for the catalog API.
func (c *Catalog) ByCategory() map[string][]models.Source {
	grouped := make(map[string][]models.Source)
	for _, src := range c.sources {
		grouped[src.Category] = append(grouped[src.Category], src)
	}
	return grouped
}

// Select resolves requested source names against the catalog. An empty
// request selects everything. Unknown names are an error so a caller's typo
// cannot silently shrink a digest.
func (c *Catalog) Select(names []string) ([]models.Source, error) {
	if len(names) == 0 {
		return c.All(), nil
	}

	byName := make(map[string]models.Source, len(c.sources))
	for _, src := range c.sources {
		byName[src.Name] = src
	}

	selected := make([]models.Source, 0, len(names))
	for _, name := range names {
		src, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		selected = append(selected, src)
	}
	return selected, nil
}
