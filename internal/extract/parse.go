package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Text-pattern parsing for the Hebrew listing copy. These rules are
// volatile and site-specific; everything here degrades to "absent"
// instead of erroring.

var (
	priceRe    = regexp.MustCompile(`([\d,]+)\s*₪|₪\s*([\d,]+)`)
	roomsRe    = regexp.MustCompile(`([\d.]+)\s*חדרים`)
	sizeRe     = regexp.MustCompile(`([\d.]+)\s*מ(?:"|״|')?ר`)
	floorRe    = regexp.MustCompile(`קומה\s*([\d]+)(?:\s*מתוך\s*([\d]+))?`)
	kmRe       = regexp.MustCompile(`([\d.]+)\s*ק(?:"|״)?מ`)
	metersRe   = regexp.MustCompile(`([\d.]+)\s*מ(?:'|טר)`)
	numericRe  = regexp.MustCompile(`[\d,]+`)
	ratingRe   = regexp.MustCompile(`([\d.]+)\s*/\s*10|([\d.]+)`)
)

func parsePrice(text string) *int {
	m := priceRe.FindStringSubmatch(text)
	var raw string
	switch {
	case m == nil:
		// Fall back to the first bare number; listing cards often
		// omit the currency mark.
		raw = numericRe.FindString(text)
	case m[1] != "":
		raw = m[1]
	default:
		raw = m[2]
	}
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func parseRooms(text string) *float64 {
	m := roomsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f <= 0 {
		return nil
	}
	return &f
}

func parseSize(text string) *float64 {
	m := sizeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f <= 0 {
		return nil
	}
	return &f
}

func parseFloor(text string) (floor, total *int) {
	m := floorRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	if n, err := strconv.Atoi(m[1]); err == nil {
		floor = &n
	}
	if m[2] != "" {
		if n, err := strconv.Atoi(m[2]); err == nil {
			total = &n
		}
	}
	return floor, total
}

// parseDistance reads "250 מ'" or "1.2 ק"מ" into meters.
func parseDistance(text string) *float64 {
	if m := kmRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f >= 0 {
			meters := f * 1000
			return &meters
		}
	}
	if m := metersRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f >= 0 {
			return &f
		}
	}
	return nil
}

func parseRating(text string) *float64 {
	m := ratingRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 10 {
		return nil
	}
	return &f
}

func parseIntLoose(text string) *int {
	raw := numericRe.FindString(text)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatLoose(text string) *float64 {
	raw := regexp.MustCompile(`[\d.]+`).FindString(text)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}
