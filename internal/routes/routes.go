package routes

import "fmt"

// Variant selects which front end's page set is served.
type Variant string

const (
	// VariantStatus is the page set of the status-string front end.
	VariantStatus Variant = "status"
	// VariantFlags is the page set of the flag-based front end, which adds bookstores.
	VariantFlags Variant = "flags"
)

// ParseVariant maps a configuration value to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantStatus, VariantFlags:
		return Variant(s), nil
	case "":
		return VariantStatus, nil
	default:
		return "", fmt.Errorf("unknown route variant %q (expected status or flags)", s)
	}
}

// Page identifies a top-level view.
type Page string

const (
	PageHome       Page = "home"
	PageLibrary    Page = "library"
	PageBookshelf  Page = "bookshelf"
	PageWishlist   Page = "wishlist"
	PageStats      Page = "stats"
	PageBookstores Page = "bookstores"
)

// Route maps a path to a page.
type Route struct {
	Path string `json:"path"`
	Page Page   `json:"page"`
}

var common = []Route{
	{Path: "/", Page: PageHome},
	{Path: "/library", Page: PageLibrary},
	{Path: "/bookshelf", Page: PageBookshelf},
	{Path: "/wishlist", Page: PageWishlist},
	{Path: "/stats", Page: PageStats},
}

// Table returns the routes of v in declaration order.
func Table(v Variant) []Route {
	out := make([]Route, len(common), len(common)+1)
	copy(out, common)
	if v == VariantFlags {
		out = append(out, Route{Path: "/bookstores", Page: PageBookstores})
	}
	return out
}

// Lookup returns the page registered for path. Matching is exact: no
// trailing-slash or case normalization.
func Lookup(v Variant, path string) (Page, bool) {
	for _, r := range Table(v) {
		if r.Path == path {
			return r.Page, true
		}
	}
	return "", false
}
