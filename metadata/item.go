package metadata

import "time"

// Author is a person credited for an item
type Author struct {
	Name      string `json:"name" yaml:"name"`
	BirthYear *int   `json:"birthYear,omitempty" yaml:"birth_year,omitempty"`
	DeathYear *int   `json:"deathYear,omitempty" yaml:"death_year,omitempty"`
	// Official marks authors acting as a public authority (laws, decrees, official works)
	Official bool `json:"official,omitempty" yaml:"official,omitempty"`
}

// Item describes a cultural artifact whose public domain status is calculated.
// It implements pdc.Metadata.
type Item struct {
	ID            string         `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Subtitle      string         `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Type          string         `json:"type,omitempty" yaml:"type,omitempty"`
	Institution   string         `json:"institution,omitempty" yaml:"institution,omitempty"`
	PublishedYear *int           `json:"publishedYear,omitempty" yaml:"published_year,omitempty"`
	Authors       []Author       `json:"authors,omitempty" yaml:"authors,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time      `json:"updatedAt" yaml:"-"`
}

// ItemID returns the item identifier
func (i *Item) ItemID() string {
	return i.ID
}

// Facts returns the item as an expression activation.
// Absent years are left out so expressions can test them with has().
func (i *Item) Facts() map[string]any {
	authors := make([]any, 0, len(i.Authors))
	for _, a := range i.Authors {
		fact := map[string]any{
			"name":     a.Name,
			"official": a.Official,
		}
		if a.BirthYear != nil {
			fact["birthYear"] = *a.BirthYear
		}
		if a.DeathYear != nil {
			fact["deathYear"] = *a.DeathYear
		}
		authors = append(authors, fact)
	}

	facts := map[string]any{
		"id":          i.ID,
		"title":       i.Title,
		"subtitle":    i.Subtitle,
		"type":        i.Type,
		"institution": i.Institution,
		"authors":     authors,
		"attributes":  map[string]any{},
	}
	if i.PublishedYear != nil {
		facts["published"] = *i.PublishedYear
	}
	if i.Attributes != nil {
		facts["attributes"] = i.Attributes
	}
	return facts
}

// Year is a convenience for building items with optional years
func Year(y int) *int {
	return &y
}
