package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// madlan.co.il URL shapes.
const (
	BaseURL = "https://www.madlan.co.il"
	// APIPathPattern matches the site's GraphQL/API endpoints whose
	// JSON responses carry the transaction-history payloads.
	APIPathPattern = `madlan\.co\.il/(api2|api)/`
)

var (
	// Detail pages look like /listings/<listing-id>.
	detailPathRe = regexp.MustCompile(`^/listings/([A-Za-z0-9_-]+)$`)
	listingIDRe  = regexp.MustCompile(`/listings/([A-Za-z0-9_-]+)`)
)

// SearchURL builds the for-sale search results URL for a city page.
// City names are Hebrew and must be path-escaped.
func SearchURL(city string, page int) string {
	u := BaseURL + "/for-sale/" + url.PathEscape(city)
	if page > 1 {
		u += fmt.Sprintf("?page=%d", page)
	}
	return u
}

// ListingIDFromURL pulls the site-assigned listing id out of a detail
// URL. The id keys the properties table.
func ListingIDFromURL(rawURL string) (string, error) {
	m := listingIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("no listing id in url %s", rawURL)
	}
	return m[1], nil
}

// normalizeDetailURL makes a candidate href absolute and strips query
// and fragment so the frontier's uniqueness holds across discoveries.
// Returns "" for hrefs that are not property-detail links.
func normalizeDetailURL(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}

	if u.Host == "" {
		base, _ := url.Parse(BaseURL)
		u = base.ResolveReference(u)
	} else if !strings.HasSuffix(u.Host, "madlan.co.il") {
		return ""
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = "https"
	u.Path = strings.TrimSuffix(u.Path, "/")

	if !detailPathRe.MatchString(u.Path) {
		return ""
	}
	return u.String()
}
