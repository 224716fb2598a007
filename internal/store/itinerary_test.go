package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/globaltrotters/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cityCols     = []string{"id", "name", "state", "country", "image_url"}
	activityCols = []string{"id", "city_id", "name", "type", "cost"}
)

func TestAddCityWithActivities(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM trips WHERE id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO cities`).
		WithArgs("Porto", "", "Portugal", "", 0.0, 0.0).
		WillReturnRows(sqlmock.NewRows(cityCols).AddRow(4, "Porto", "", "Portugal", ""))
	mock.ExpectExec(`INSERT INTO stops .+ ON CONFLICT \(trip_id, city_id\) DO NOTHING`).
		WithArgs(7, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO activities`).
		WithArgs(4, "Livraria Lello", "culture", 0.0, 0, "", "").
		WillReturnRows(sqlmock.NewRows(activityCols).AddRow(11, 4, "Livraria Lello", "culture", 8.0))
	mock.ExpectQuery(`INSERT INTO activities`).
		WithArgs(4, "Ribeira", "sightseeing", 0.0, 0, "", "").
		WillReturnRows(sqlmock.NewRows(activityCols).AddRow(12, 4, "Ribeira", "sightseeing", 0.0))
	mock.ExpectExec(`INSERT INTO stop_activities .+ UNNEST\(\$3::int\[\]\)`).
		WithArgs(7, 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	city, activities, err := repo.AddCityWithActivities(context.Background(), 7,
		types.City{Name: "Porto", Country: "Portugal"},
		[]types.Activity{
			{Name: "Livraria Lello", Type: "culture"},
			{Name: "Ribeira", Type: "sightseeing"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 4, city.ID)
	require.Len(t, activities, 2)
	assert.Equal(t, 11, activities[0].ID)
	assert.Equal(t, 8.0, activities[0].Cost)
	assert.Equal(t, 4, activities[1].CityID)
}

func TestAddCityWithActivitiesRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM trips WHERE id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO cities`).
		WillReturnRows(sqlmock.NewRows(cityCols).AddRow(4, "Porto", "", "Portugal", ""))
	mock.ExpectExec(`INSERT INTO stops`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, _, err := repo.AddCityWithActivities(context.Background(), 7, types.City{Name: "Porto"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestAddCityWithActivitiesMissingTrip(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM trips WHERE id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.AddCityWithActivities(context.Background(), 7, types.City{Name: "Porto"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplacePlanForeignTrip(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM trips WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
		WithArgs(3, 9).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.ReplacePlan(context.Background(), types.Trip{ID: 3, UserID: 9}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplacePlan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	plan := []types.PlannedStop{{
		City:       types.CityRef{Name: "Rome", Country: "Italy"},
		Activities: []types.PlannedActivity{{Name: "Colosseum", Type: "culture", Cost: 18}},
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM trips .+ FOR UPDATE`).
		WithArgs(3, 9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(`UPDATE trips`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM stop_activities WHERE trip_id = \$1`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM stops WHERE trip_id = \$1`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO cities`).
		WillReturnRows(sqlmock.NewRows(cityCols).AddRow(5, "Rome", "", "Italy", ""))
	mock.ExpectExec(`INSERT INTO stops`).
		WithArgs(3, 5, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO activities`).
		WithArgs(5, "Colosseum", "culture", 18.0, 0, "", "").
		WillReturnRows(sqlmock.NewRows(activityCols).AddRow(21, 5, "Colosseum", "culture", 18.0))
	mock.ExpectExec(`INSERT INTO stop_activities`).
		WithArgs(3, 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplacePlan(context.Background(), types.Trip{ID: 3, UserID: 9, Name: "Rome"}, plan)
	require.NoError(t, err)
}

func TestStopActivitiesByTripsEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewItineraryRepository(db)

	result, err := repo.StopActivitiesByTrips(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestStopsByTripsGroupsByTrip(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	mock.ExpectQuery(`FROM stops s\s+JOIN cities c`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "city_id", "stop_index", "city_name", "city_country"}).
			AddRow(1, 2, 4, 0, "Porto", "Portugal").
			AddRow(2, 2, 5, 1, "Lisbon", "Portugal").
			AddRow(3, 6, 4, 0, "Porto", "Portugal"))

	stops, err := repo.StopsByTrips(context.Background(), []int{2, 6})
	require.NoError(t, err)
	require.Len(t, stops[2], 2)
	assert.Equal(t, "Lisbon", stops[2][1].City.Name)
	require.Len(t, stops[6], 1)
	assert.Equal(t, 4, stops[6][0].City.ID)
}

func TestDeleteStopActivityScopedToTrip(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItineraryRepository(db)

	mock.ExpectExec(`DELETE FROM stop_activities WHERE id = \$1 AND trip_id = \$2`).
		WithArgs(40, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteStopActivity(context.Background(), 3, 40)
	assert.ErrorIs(t, err, ErrNotFound)
}
