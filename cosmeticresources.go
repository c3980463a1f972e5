package advtblock

import "strings"

// CosmeticResources are the cosmetic resources applying to a page.
type CosmeticResources struct {
	// HideSelectors are the unique selectors of the elements to hide.
	HideSelectors []string `json:"hide_selectors"`

	// InjectedScript is the concatenation of the scripts and scriptlets to
	// inject, in the order the rules were registered, joined with newlines.
	InjectedScript string `json:"injected_script"`

	// Exceptions are the unique selectors that are explicitly excluded from
	// hiding on the page.
	Exceptions []string `json:"exceptions"`

	// GenericHide is true if the generic element hiding rules are disabled on
	// the page.
	GenericHide bool `json:"generichide"`
}

// newCosmeticResources returns new empty cosmetic resources.  The slices are
// not nil so that they are encoded as empty JSON arrays.
func newCosmeticResources() (res *CosmeticResources) {
	return &CosmeticResources{
		HideSelectors: []string{},
		Exceptions:    []string{},
	}
}

// StylesheetRuleSuffix is the declaration block following each selector in the
// stylesheet built by [SelectorsToStylesheet].
const StylesheetRuleSuffix = " { display: none !important; }\n"

// SelectorsToStylesheet returns a stylesheet hiding the elements matched by
// the hide selectors of res, one selector per line.  It returns an empty
// string if res is nil or has no selectors.
func SelectorsToStylesheet(res *CosmeticResources) (css string) {
	if res == nil || len(res.HideSelectors) == 0 {
		return ""
	}

	b := &strings.Builder{}
	for _, sel := range res.HideSelectors {
		b.WriteString(sel)
		b.WriteString(StylesheetRuleSuffix)
	}

	return b.String()
}
