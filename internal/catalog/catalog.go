// Package catalog holds the service category table the pipeline classifies
// requests into. The catalog is an ordered, immutable list so fallback
// scoring and prompt rendering are deterministic.
package catalog

// Category is one routable service classification.
type Category struct {
	Code       string   `json:"code"`
	Label      string   `json:"label"`
	Department string   `json:"department"`
	Keywords   []string `json:"keywords"`
	SLADays    int      `json:"sla_days"`
	Priority   int      `json:"priority"` // 1 (highest) .. 5
}

// Catalog is an ordered set of categories. Iteration order is the tie-break
// order for fallback classification, so it is part of the contract.
type Catalog struct {
	categories []Category
	byCode     map[string]int
}

// New builds a catalog from an ordered category list. The slice is copied;
// callers cannot mutate the catalog afterwards.
func New(categories []Category) *Catalog {
	c := &Catalog{
		categories: make([]Category, len(categories)),
		byCode:     make(map[string]int, len(categories)),
	}
	copy(c.categories, categories)
	for i, cat := range c.categories {
		c.byCode[cat.Code] = i
	}
	return c
}

// Categories returns the categories in catalog order. The returned slice is a
// copy.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Lookup returns the category with the given code.
func (c *Catalog) Lookup(code string) (Category, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.categories) }

// Unclassified is returned by the fallback classifier when nothing in the
// catalog matches the request.
var Unclassified = Category{
	Code:       "GENERAL_REQUEST",
	Label:      "General Service Request",
	Department: "CUSTOMER_SERVICE",
}

// Default returns the standard Seattle service catalog.
func Default() *Catalog {
	return New([]Category{
		{
			Code:       "SDOT_POTHOLE",
			Label:      "Pothole Repair",
			Department: "SDOT",
			Keywords:   []string{"pothole", "hole", "road damage", "street damage", "pavement"},
			SLADays:    3,
			Priority:   2,
		},
		{
			Code:       "SDOT_STREETLIGHT",
			Label:      "Street Light Out",
			Department: "SDOT",
			Keywords:   []string{"streetlight", "street light", "light out", "dark", "lighting"},
			SLADays:    10,
			Priority:   3,
		},
		{
			Code:       "SDOT_SIGN",
			Label:      "Traffic Sign Repair",
			Department: "SDOT",
			Keywords:   []string{"sign", "stop sign", "street sign", "missing sign"},
			SLADays:    5,
			Priority:   2,
		},
		{
			Code:       "SDOT_SIGNAL",
			Label:      "Traffic Signal Issue",
			Department: "SDOT",
			Keywords:   []string{"traffic light", "signal", "stoplight", "traffic control"},
			SLADays:    1,
			Priority:   1,
		},
		{
			Code:       "SPU_GRAFFITI",
			Label:      "Graffiti Removal",
			Department: "SPU",
			Keywords:   []string{"graffiti", "vandalism", "spray paint", "tagging"},
			SLADays:    10,
			Priority:   3,
		},
		{
			Code:       "SPU_DUMPING",
			Label:      "Illegal Dumping",
			Department: "SPU",
			Keywords:   []string{"dumping", "trash", "garbage", "waste", "litter"},
			SLADays:    7,
			Priority:   3,
		},
		{
			Code:       "SPU_TREE",
			Label:      "Tree Maintenance",
			Department: "SPU",
			Keywords:   []string{"tree", "branches", "fallen tree", "trimming"},
			SLADays:    14,
			Priority:   3,
		},
		{
			Code:       "PARKING_ABANDONED",
			Label:      "Abandoned Vehicle",
			Department: "PARKING",
			Keywords:   []string{"abandoned vehicle", "abandoned car", "parked car"},
			SLADays:    30,
			Priority:   4,
		},
		{
			Code:       "PARKING_VIOLATION",
			Label:      "Parking Enforcement",
			Department: "PARKING",
			Keywords:   []string{"parking", "parked", "blocking", "illegal parking"},
			SLADays:    2,
			Priority:   2,
		},
		{
			Code:       "NOISE_COMPLAINT",
			Label:      "Noise Complaint",
			Department: "POLICE",
			Keywords:   []string{"noise", "loud", "party", "music", "disturbance"},
			SLADays:    1,
			Priority:   2,
		},
	})
}
