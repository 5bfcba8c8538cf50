// Package extract turns fetched page snapshots into typed candidate
// records. Every function here is pure over the supplied snapshot and
// never fails on malformed or missing data — it returns an empty
// result and leaves the failure policy to the orchestrator.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"madlan-crawler/internal/browser"
	"madlan-crawler/internal/models"
)

// Defensive caps on per-page candidate counts; a pathological page
// must not flood the store.
const (
	maxImages       = 30
	maxSchools      = 25
	maxComparisons  = 10
	maxConstruction = 20
	maxTransactions = 50
)

// document parses the page snapshot. A page whose HTML cannot be read
// yields an empty document, which every extractor treats as "nothing
// found".
func document(page browser.Page) *goquery.Document {
	html, err := page.HTML()
	if err != nil {
		html = ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

// PropertyURLs collects the property-detail URLs linked from a search
// results page: absolute, query-stripped, deduplicated, and filtered
// to the detail URL shape.
func PropertyURLs(page browser.Page) []string {
	doc := document(page)

	var urls []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u := normalizeDetailURL(href)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	})

	return urls
}

// HasNextPage reports whether the search results page links a further
// page of results.
func HasNextPage(page browser.Page) bool {
	doc := document(page)

	if doc.Find(`a[data-auto="pagination-next"]`).Length() > 0 {
		return true
	}
	// Older markup: a generic next arrow that is not disabled.
	next := doc.Find("a.pagination-next, li.next a")
	return next.Length() > 0 && !next.HasClass("disabled")
}

// PropertyFields parses the detail page into a property record. ok is
// false when the required fields (price and rooms) could not be
// parsed, which the orchestrator treats as a failed crawl for the URL.
func PropertyFields(page browser.Page, url, city string) (*models.Property, bool) {
	id, err := ListingIDFromURL(url)
	if err != nil {
		return nil, false
	}

	doc := document(page)
	p := &models.Property{ID: id, URL: url, City: city}

	p.Price = parsePrice(firstText(doc,
		`[data-auto="property-price"]`, ".property-price", "h2.price"))
	summary := firstText(doc,
		`[data-auto="property-details"]`, ".property-details", ".listing-summary")
	if summary == "" {
		// Fall back to scanning the whole page copy for the
		// rooms/size/floor patterns.
		summary = doc.Find("body").Text()
	}
	p.Rooms = parseRooms(summary)
	p.Size = parseSize(summary)
	p.Floor, p.TotalFloors = parseFloor(summary)

	p.Address = firstText(doc, `[data-auto="property-address"]`, ".property-address", "h1")
	p.Neighborhood = firstText(doc, `[data-auto="property-neighborhood"]`, ".property-neighborhood")
	p.PropertyType = firstText(doc, `[data-auto="property-type"]`, ".property-type")
	p.Description = firstText(doc, `[data-auto="property-description"]`, ".property-description")

	amenities := doc.Find(`[data-auto="amenities"], .amenities, .property-amenities`).Text()
	if amenities == "" {
		amenities = doc.Find("body").Text()
	}
	p.HasElevator = strings.Contains(amenities, "מעלית")
	p.HasParking = strings.Contains(amenities, "חניה")
	p.HasBalcony = strings.Contains(amenities, "מרפסת")
	p.HasSafeRoom = strings.Contains(amenities, `ממ"ד`) || strings.Contains(amenities, "ממ״ד")
	p.HasAirConditioning = strings.Contains(amenities, "מיזוג")
	p.HasBars = strings.Contains(amenities, "סורגים")
	p.HasStorageRoom = strings.Contains(amenities, "מחסן")
	p.IsAccessible = strings.Contains(amenities, "גישה לנכים")
	p.IsRenovated = strings.Contains(amenities, "משופצת") || strings.Contains(amenities, "משופץ")

	if p.Price == nil || p.Rooms == nil {
		return nil, false
	}
	return p, true
}

// firstText returns the trimmed text of the first selector that
// matches anything.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}
