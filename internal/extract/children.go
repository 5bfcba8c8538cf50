package extract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"madlan-crawler/internal/browser"
	"madlan-crawler/internal/models"
)

// Images collects the listing's gallery image URLs in display order.
func Images(page browser.Page, propertyID string) []models.PropertyImage {
	doc := document(page)

	var out []models.PropertyImage
	seen := make(map[string]bool)

	doc.Find(`[data-auto="gallery"] img, .gallery img, .property-images img`).Each(func(_ int, sel *goquery.Selection) {
		if len(out) >= maxImages {
			return
		}
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") || seen[src] {
			return
		}
		seen[src] = true
		out = append(out, models.PropertyImage{
			PropertyID: propertyID,
			ImageURL:   src,
			SortOrder:  len(out),
		})
	})

	return out
}

// Schools collects the nearby-schools card. Distance is optional and
// stays nil when the card omits it.
func Schools(page browser.Page, propertyID string) []models.School {
	doc := document(page)

	var out []models.School
	doc.Find(`[data-auto="nearby-schools"] li, .nearby-schools li, .schools-list li`).Each(func(_ int, sel *goquery.Selection) {
		if len(out) >= maxSchools {
			return
		}
		name := strings.TrimSpace(sel.Find(".school-name, strong").First().Text())
		if name == "" {
			name = strings.TrimSpace(sel.Text())
		}
		if name == "" {
			return
		}
		out = append(out, models.School{
			PropertyID:     propertyID,
			Name:           name,
			SchoolType:     strings.TrimSpace(sel.Find(".school-type").First().Text()),
			Grades:         strings.TrimSpace(sel.Find(".school-grades").First().Text()),
			DistanceMeters: parseDistance(sel.Text()),
		})
	})

	return out
}

// RatingsOf parses the neighborhood rating card, or nil when the page
// carries none.
func RatingsOf(page browser.Page, propertyID string) *models.Ratings {
	doc := document(page)

	card := doc.Find(`[data-auto="neighborhood-ratings"], .neighborhood-ratings`).First()
	if card.Length() == 0 {
		return nil
	}

	r := &models.Ratings{PropertyID: propertyID}
	r.OverallRating = parseRating(card.Find(`[data-auto="rating-overall"], .rating-overall`).Text())
	r.SchoolsRating = parseRating(card.Find(`[data-auto="rating-schools"], .rating-schools`).Text())
	r.TransportRating = parseRating(card.Find(`[data-auto="rating-transport"], .rating-transport`).Text())
	r.ParksRating = parseRating(card.Find(`[data-auto="rating-parks"], .rating-parks`).Text())
	r.QuietRating = parseRating(card.Find(`[data-auto="rating-quiet"], .rating-quiet`).Text())
	r.SafetyRating = parseRating(card.Find(`[data-auto="rating-safety"], .rating-safety`).Text())

	if r.OverallRating == nil && r.SchoolsRating == nil && r.TransportRating == nil &&
		r.ParksRating == nil && r.QuietRating == nil && r.SafetyRating == nil {
		return nil
	}
	return r
}

// PriceComparisons parses the per-room-count average price table.
func PriceComparisons(page browser.Page, propertyID string) []models.PriceComparison {
	doc := document(page)

	var out []models.PriceComparison
	doc.Find(`[data-auto="price-comparison"] tr, .price-comparison tr`).Each(func(_ int, sel *goquery.Selection) {
		if len(out) >= maxComparisons {
			return
		}
		cells := sel.Find("td")
		if cells.Length() < 2 {
			return
		}
		rooms := parseFloatLoose(cells.Eq(0).Text())
		if rooms == nil {
			return
		}
		pc := models.PriceComparison{
			PropertyID:   propertyID,
			Rooms:        *rooms,
			AveragePrice: parsePrice(cells.Eq(1).Text()),
		}
		if cells.Length() > 2 {
			pc.ListingCount = parseIntLoose(cells.Eq(2).Text())
		}
		out = append(out, pc)
	})

	return out
}

// ConstructionProjects parses nearby construction-project cards,
// capped defensively.
func ConstructionProjects(page browser.Page, propertyID string) []models.ConstructionProject {
	doc := document(page)

	var out []models.ConstructionProject
	doc.Find(`[data-auto="construction-projects"] li, .construction-projects li, .new-projects li`).Each(func(_ int, sel *goquery.Selection) {
		if len(out) >= maxConstruction {
			return
		}
		name := strings.TrimSpace(sel.Find(".project-name, strong").First().Text())
		if name == "" {
			name = strings.TrimSpace(sel.Text())
		}
		if name == "" {
			return
		}
		out = append(out, models.ConstructionProject{
			PropertyID:     propertyID,
			Name:           name,
			Status:         strings.TrimSpace(sel.Find(".project-status").First().Text()),
			Address:        strings.TrimSpace(sel.Find(".project-address").First().Text()),
			DistanceMeters: parseDistance(sel.Text()),
		})
	})

	return out
}

// transactionPayload mirrors the deal rows inside the captured API
// JSON. Field names are tolerant of the two envelope shapes the site
// has used.
type transactionPayload struct {
	Deals []dealRecord `json:"deals"`
	Data  struct {
		Deals []dealRecord `json:"deals"`
	} `json:"data"`
}

type dealRecord struct {
	Date    string   `json:"dealDate"`
	Address string   `json:"address"`
	Rooms   *float64 `json:"rooms"`
	Floor   *int     `json:"floor"`
	Size    *float64 `json:"size"`
	Price   *int     `json:"price"`
}

// Transactions parses the captured API response bodies into the
// listing's transaction history. Undecodable payloads are skipped.
func Transactions(payloads [][]byte, propertyID string) []models.Transaction {
	var out []models.Transaction

	for _, body := range payloads {
		var tp transactionPayload
		if err := json.Unmarshal(body, &tp); err != nil {
			continue
		}
		deals := tp.Deals
		if len(deals) == 0 {
			deals = tp.Data.Deals
		}
		for _, d := range deals {
			if len(out) >= maxTransactions {
				return out
			}
			t := models.Transaction{
				PropertyID: propertyID,
				Address:    d.Address,
				Rooms:      d.Rooms,
				Floor:      d.Floor,
				Size:       d.Size,
				Price:      d.Price,
			}
			if d.Date != "" {
				for _, layout := range []string{"2006-01-02", time.RFC3339, "02/01/2006"} {
					if ts, err := time.Parse(layout, d.Date); err == nil {
						t.Date = &ts
						break
					}
				}
			}
			out = append(out, t)
		}
	}

	return out
}
