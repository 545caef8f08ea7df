// Package feeds fetches raw articles from the configured news sources.
package feeds

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/user/newshound/internal/types"
)

// Catalog is the on-disk shape of sources.yaml.
type Catalog struct {
	Sources []types.Source `yaml:"sources"`
}

// LoadCatalog reads the source catalog from path. If the file does not exist
// the default catalog is written there first, so a fresh install fetches
// something useful on the first run.
func LoadCatalog(path string) ([]types.Source, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := WriteDefaultCatalog(path); err != nil {
			return nil, err
		}
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Sources) == 0 {
		return nil, fmt.Errorf("catalog %s has no sources", path)
	}
	for i, src := range cat.Sources {
		if src.Name == "" || src.URL == "" {
			return nil, fmt.Errorf("catalog entry %d is missing name or url", i)
		}
		if src.Kind != types.SourceKindRSS && src.Kind != types.SourceKindHackerNews {
			return nil, fmt.Errorf("catalog entry %q has unknown kind %q", src.Name, src.Kind)
		}
	}
	return cat.Sources, nil
}

// WriteDefaultCatalog writes the built-in source list to path.
func WriteDefaultCatalog(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	data, err := yaml.Marshal(Catalog{Sources: DefaultSources()})
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// DefaultSources returns a copy of the built-in catalog.
func DefaultSources() []types.Source {
	out := make([]types.Source, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

var defaultCatalog = []types.Source{
	{Name: "RBI Press Releases", Kind: types.SourceKindRSS, URL: "https://www.rbi.org.in/pressreleases_rss.xml", Category: types.CategoryFinance},
	{Name: "NPCI Circulars", Kind: types.SourceKindRSS, URL: "https://www.npci.org.in/rss-feed", Category: types.CategoryFinance},
	{Name: "The Hindu BusinessLine Money & Banking", Kind: types.SourceKindRSS, URL: "https://www.thehindubusinessline.com/money-and-banking/feeder/default.rss", Category: types.CategoryFinance},
	{Name: "Economic Times Banking", Kind: types.SourceKindRSS, URL: "https://economictimes.indiatimes.com/industry/banking/finance/banking/rssfeeds/13358319.cms", Category: types.CategoryFinance},
	{Name: "Moneycontrol Business", Kind: types.SourceKindRSS, URL: "https://www.moneycontrol.com/rss/business.xml", Category: types.CategoryFinance},
	{Name: "LiveMint Banking", Kind: types.SourceKindRSS, URL: "https://www.livemint.com/rss/industry/banking", Category: types.CategoryFinance},
	{Name: "Hacker News", Kind: types.SourceKindHackerNews, URL: "https://hacker-news.firebaseio.com/v0", Category: types.CategoryTech, Limit: 10},
	{Name: "TechCrunch Fintech", Kind: types.SourceKindRSS, URL: "https://techcrunch.com/category/fintech/feed/", Category: types.CategoryTech},
	{Name: "The Verge", Kind: types.SourceKindRSS, URL: "https://www.theverge.com/rss/index.xml", Category: types.CategoryTech},
	{Name: "Ars Technica", Kind: types.SourceKindRSS, URL: "https://feeds.arstechnica.com/arstechnica/index", Category: types.CategoryTech},
	{Name: "PIB Finance Ministry", Kind: types.SourceKindRSS, URL: "https://pib.gov.in/RssMain.aspx?ModId=6&Lang=1&Regid=3", Category: types.CategoryGovernment},
	{Name: "MeitY", Kind: types.SourceKindRSS, URL: "https://www.meity.gov.in/whatsnew/rss.xml", Category: types.CategoryGovernment},
	{Name: "Medianama", Kind: types.SourceKindRSS, URL: "https://www.medianama.com/feed/", Category: types.CategoryGovernment},
	{Name: "Entrackr", Kind: types.SourceKindRSS, URL: "https://entrackr.com/feed/", Category: types.CategoryTech},
}
