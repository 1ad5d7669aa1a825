package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"fleetledger/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/suite"
)

type LocationRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    LocationRepository
	context context.Context
}

func (suite *LocationRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	suite.Require().NoError(err)
	suite.mock = mock
	suite.repo = NewLocationRepo(mock)
	suite.context = context.Background()
}

func (suite *LocationRepoTestSuite) TearDownTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestLocationRepoTestSuite(t *testing.T) {
	suite.Run(t, new(LocationRepoTestSuite))
}

func (suite *LocationRepoTestSuite) TestCreate() {
	now := time.Now().UTC()
	location := &models.Location{ID: uuid.New(), Name: "Main depot", Active: true}
	suite.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO locations (id, name, active, created_at, updated_at)`)).
		WithArgs(location.ID, location.Name, location.Active).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	suite.Require().NoError(suite.repo.Create(suite.context, location))
	suite.Equal(now, location.CreatedAt)
}

func (suite *LocationRepoTestSuite) TestList_ActiveOnly() {
	now := time.Now().UTC()
	id := uuid.New()
	suite.mock.ExpectQuery(regexp.QuoteMeta(`WHERE (NOT $1::boolean OR active)`)).
		WithArgs(true, 50, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "active", "created_at", "updated_at"}).
			AddRow(id, "Main depot", true, now, now))

	locations, err := suite.repo.List(suite.context, true, 50, 0)
	suite.Require().NoError(err)
	suite.Require().Len(locations, 1)
	suite.Equal(id, locations[0].ID)
}

func (suite *LocationRepoTestSuite) TestSetActive() {
	id := uuid.New()
	suite.mock.ExpectExec(regexp.QuoteMeta(`UPDATE locations SET active = $1, updated_at = NOW() WHERE id = $2`)).
		WithArgs(false, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	suite.NoError(suite.repo.SetActive(suite.context, id, false))
}

func (suite *LocationRepoTestSuite) TestSetActive_NotFound() {
	id := uuid.New()
	suite.mock.ExpectExec(regexp.QuoteMeta(`UPDATE locations`)).
		WithArgs(true, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	suite.ErrorIs(suite.repo.SetActive(suite.context, id, true), models.ErrNotFound)
}
