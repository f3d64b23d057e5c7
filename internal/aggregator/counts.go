package aggregator

import (
	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

// Counts holds the size of a set broken down by each issue property.
type Counts struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByCategory map[string]int `json:"by_category"`
	ByType     map[string]int `json:"by_type"`
	ByFile     map[string]int `json:"by_file"`
	ByFolder   map[string]int `json:"by_folder"`
	ByOrigin   map[string]int `json:"by_origin"`
}

// CountsOf computes all breakdowns of set in a single pass. With qualified
// set, category and type keys are prefixed with the issue origin so equal
// names from different tools stay apart.
func CountsOf(set issues.Set, qualified bool) Counts {
	c := Counts{
		Total:      set.Size(),
		BySeverity: make(map[string]int),
		ByCategory: make(map[string]int),
		ByType:     make(map[string]int),
		ByFile:     make(map[string]int),
		ByFolder:   make(map[string]int),
		ByOrigin:   make(map[string]int),
	}
	category, typ := issues.KeyCategory, issues.KeyType
	if qualified {
		category, typ = issues.Qualified(category), issues.Qualified(typ)
	}

	set.Each(func(_ int, i schemas.Issue) {
		c.BySeverity[issues.KeySeverity(i)]++
		c.ByCategory[category(i)]++
		c.ByType[typ(i)]++
		c.ByFile[issues.KeyFile(i)]++
		c.ByFolder[issues.KeyFolder(i)]++
		c.ByOrigin[issues.KeyOrigin(i)]++
	})
	return c
}
