package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1,500,000 ₪", 1500000, true},
		{"₪ 950,000", 950000, true},
		{"מחיר: 2,300,000", 2300000, true}, // bare number fallback
		{"לא פורסם", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got := parsePrice(c.in)
		if !c.ok {
			assert.Nil(t, got, c.in)
			continue
		}
		require.NotNil(t, got, c.in)
		assert.Equal(t, c.want, *got, c.in)
	}
}

func TestParseRooms(t *testing.T) {
	got := parseRooms("דירה, 3.5 חדרים, קומה 2")
	require.NotNil(t, got)
	assert.Equal(t, 3.5, *got)

	assert.Nil(t, parseRooms("דירה ללא פירוט"))
}

func TestParseSize(t *testing.T) {
	got := parseSize(`85 מ"ר`)
	require.NotNil(t, got)
	assert.Equal(t, 85.0, *got)

	got = parseSize("120.5 מ״ר")
	require.NotNil(t, got)
	assert.Equal(t, 120.5, *got)

	assert.Nil(t, parseSize("ללא שטח"))
}

func TestParseFloor(t *testing.T) {
	floor, total := parseFloor("קומה 3 מתוך 9")
	require.NotNil(t, floor)
	require.NotNil(t, total)
	assert.Equal(t, 3, *floor)
	assert.Equal(t, 9, *total)

	floor, total = parseFloor("קומה 2")
	require.NotNil(t, floor)
	assert.Equal(t, 2, *floor)
	assert.Nil(t, total)

	floor, total = parseFloor("קרקע")
	assert.Nil(t, floor)
	assert.Nil(t, total)
}

func TestParseDistance(t *testing.T) {
	got := parseDistance(`1.2 ק"מ מהנכס`)
	require.NotNil(t, got)
	assert.Equal(t, 1200.0, *got)

	got = parseDistance("250 מ' מהנכס")
	require.NotNil(t, got)
	assert.Equal(t, 250.0, *got)

	assert.Nil(t, parseDistance("במרחק הליכה"))
}

func TestParseRating(t *testing.T) {
	got := parseRating("8.5/10")
	require.NotNil(t, got)
	assert.Equal(t, 8.5, *got)

	got = parseRating("7")
	require.NotNil(t, got)
	assert.Equal(t, 7.0, *got)

	assert.Nil(t, parseRating("12"), "ratings above 10 are garbage")
	assert.Nil(t, parseRating(""))
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.madlan.co.il/for-sale/%D7%97%D7%99%D7%A4%D7%94",
		SearchURL("חיפה", 1))
	assert.Equal(t,
		"https://www.madlan.co.il/for-sale/%D7%97%D7%99%D7%A4%D7%94?page=3",
		SearchURL("חיפה", 3))
}

func TestListingIDFromURL(t *testing.T) {
	id, err := ListingIDFromURL("https://www.madlan.co.il/listings/AbC-123_x")
	require.NoError(t, err)
	assert.Equal(t, "AbC-123_x", id)

	_, err = ListingIDFromURL("https://www.madlan.co.il/for-sale/haifa")
	require.Error(t, err)
}
