package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madlan-crawler/internal/models"
	"madlan-crawler/internal/storage"
)

func openTestDB(t *testing.T) storage.DB {
	t.Helper()
	db, err := storage.Open(storage.BackendSQLite, filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(n int) *int             { return &n }
func floatPtr(f float64) *float64   { return &f }
func timePtr(ts time.Time) *time.Time { return &ts }

func sampleProperty(id string) *models.Property {
	return &models.Property{
		ID:    id,
		URL:   "https://www.madlan.co.il/listings/" + id,
		City:  "חיפה",
		Price: intPtr(1500000),
		Rooms: floatPtr(3.5),
		Size:  floatPtr(85),
	}
}

func TestPropertyUpsertInsertsThenUpdates(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	p := sampleProperty("madlan-1")
	p.HasElevator = true
	require.NoError(t, repos.Properties.Upsert(ctx, p))

	got, err := repos.Properties.FindByID(ctx, "madlan-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1500000, *got.Price)
	assert.True(t, got.HasElevator)
	assert.False(t, got.LastSeenAt.IsZero())

	// Second crawl of the same listing overwrites in place.
	p2 := sampleProperty("madlan-1")
	p2.Price = intPtr(1450000)
	p2.HasElevator = false
	require.NoError(t, repos.Properties.Upsert(ctx, p2))

	got, err = repos.Properties.FindByID(ctx, "madlan-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1450000, *got.Price)
	assert.False(t, got.HasElevator)

	n, err := repos.Properties.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPropertyFindByIDAbsent(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)

	got, err := repos.Properties.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPropertyFindByCity(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	a := sampleProperty("a")
	a.LastSeenAt = time.Now().Add(-time.Hour)
	require.NoError(t, repos.Properties.Upsert(ctx, a))
	b := sampleProperty("b")
	b.LastSeenAt = time.Now()
	require.NoError(t, repos.Properties.Upsert(ctx, b))

	got, err := repos.Properties.FindByCity(ctx, "חיפה")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID, "most recently seen first")
}

func TestInsertManyAssignsSequentialIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Transact(ctx, func(s storage.Store) error {
		repos := New(s)
		imgs := []models.PropertyImage{
			{PropertyID: "p1", ImageURL: "https://img/1.jpg", SortOrder: 0},
			{PropertyID: "p1", ImageURL: "https://img/2.jpg", SortOrder: 1},
			{PropertyID: "p1", ImageURL: "https://img/3.jpg", SortOrder: 2},
		}
		if err := repos.Images.InsertMany(ctx, imgs); err != nil {
			return err
		}
		assert.Equal(t, int64(1), imgs[0].ID)
		assert.Equal(t, int64(2), imgs[1].ID)
		assert.Equal(t, int64(3), imgs[2].ID)
		return nil
	})
	require.NoError(t, err)

	got, err := New(db).Images.FindByPropertyID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://img/1.jpg", got[0].ImageURL)
}

func TestSchoolsOrderedByDistanceNullsLast(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	schools := []models.School{
		{PropertyID: "p1", Name: "רחוקה", DistanceMeters: floatPtr(50)},
		{PropertyID: "p1", Name: "ללא מרחק"},
		{PropertyID: "p1", Name: "קרובה", DistanceMeters: floatPtr(10)},
	}
	require.NoError(t, repos.Schools.InsertMany(ctx, schools))

	got, err := repos.Schools.FindByPropertyID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "קרובה", got[0].Name)
	assert.Equal(t, "רחוקה", got[1].Name)
	assert.Equal(t, "ללא מרחק", got[2].Name)
	assert.Nil(t, got[2].DistanceMeters)
}

func TestChildSetFullReplacement(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed := make([]models.School, 5)
	for i := range seed {
		seed[i] = models.School{PropertyID: "madlan-1", Name: "בית ספר", DistanceMeters: floatPtr(float64(100 + i))}
	}
	require.NoError(t, New(db).Schools.InsertMany(ctx, seed))

	// A later crawl finds only two schools: the old set is replaced
	// wholesale inside one transaction.
	err := db.Transact(ctx, func(s storage.Store) error {
		repos := New(s)
		if _, err := repos.Schools.DeleteByPropertyID(ctx, "madlan-1"); err != nil {
			return err
		}
		return repos.Schools.InsertMany(ctx, []models.School{
			{PropertyID: "madlan-1", Name: "חדשה א", DistanceMeters: floatPtr(20)},
			{PropertyID: "madlan-1", Name: "חדשה ב", DistanceMeters: floatPtr(40)},
		})
	})
	require.NoError(t, err)

	n, err := New(db).Schools.CountByPropertyID(ctx, "madlan-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRatingsUpsertReplacesSingleRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Transact(ctx, func(s storage.Store) error {
		return New(s).Ratings.Upsert(ctx, &models.Ratings{
			PropertyID:    "p1",
			OverallRating: floatPtr(7.5),
		})
	})
	require.NoError(t, err)

	err = db.Transact(ctx, func(s storage.Store) error {
		return New(s).Ratings.Upsert(ctx, &models.Ratings{
			PropertyID:    "p1",
			OverallRating: floatPtr(8.0),
			SafetyRating:  floatPtr(6.0),
		})
	})
	require.NoError(t, err)

	repos := New(db)
	n, err := repos.Ratings.CountByPropertyID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "at most one rating row per property")

	got, err := repos.Ratings.FindByPropertyID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 8.0, *got.OverallRating)
	assert.Equal(t, 6.0, *got.SafetyRating)
}

func TestRatingsFindAbsent(t *testing.T) {
	db := openTestDB(t)
	got, err := New(db).Ratings.FindByPropertyID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionsOrderedByDateDescending(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	old := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{PropertyID: "p1", Date: timePtr(old), Price: intPtr(1200000)},
		{PropertyID: "p1", Price: intPtr(900000)}, // undated
		{PropertyID: "p1", Date: timePtr(recent), Price: intPtr(1600000)},
	}
	require.NoError(t, repos.Transactions.InsertMany(ctx, txs))

	got, err := repos.Transactions.FindByPropertyID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1600000, *got[0].Price)
	assert.Equal(t, 1200000, *got[1].Price)
	assert.Nil(t, got[2].Date, "undated rows sort last")
}

func TestPriceComparisonsOrderedByRooms(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	pcs := []models.PriceComparison{
		{PropertyID: "p1", Rooms: 4, AveragePrice: intPtr(1900000)},
		{PropertyID: "p1", Rooms: 3, AveragePrice: intPtr(1400000)},
		{PropertyID: "p1", Rooms: 5, AveragePrice: intPtr(2400000)},
	}
	require.NoError(t, repos.Comparisons.InsertMany(ctx, pcs))

	got, err := repos.Comparisons.FindByPropertyID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 3.0, got[0].Rooms)
	assert.Equal(t, 5.0, got[2].Rooms)
}

func TestConstructionOrderedByDistanceNullsLast(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	cps := []models.ConstructionProject{
		{PropertyID: "p1", Name: "מגדל ב", DistanceMeters: floatPtr(800)},
		{PropertyID: "p1", Name: "מגדל ללא מרחק"},
		{PropertyID: "p1", Name: "מגדל א", DistanceMeters: floatPtr(150)},
	}
	require.NoError(t, repos.Construction.InsertMany(ctx, cps))

	got, err := repos.Construction.FindByPropertyID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "מגדל א", got[0].Name)
	assert.Nil(t, got[2].DistanceMeters)
}

func TestInsertManyEmptyIsNoop(t *testing.T) {
	db := openTestDB(t)
	repos := New(db)
	ctx := context.Background()

	require.NoError(t, repos.Images.InsertMany(ctx, nil))
	require.NoError(t, repos.Schools.InsertMany(ctx, nil))
	require.NoError(t, repos.Transactions.InsertMany(ctx, nil))

	n, err := repos.Images.CountByPropertyID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
