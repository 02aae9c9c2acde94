//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/internal/audit/store/postgres"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
	"github.com/adonisja/tyche-finance-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.ExecContext(context.Background(), postgres.Schema)
	s.Require().NoError(err)
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_entries"))
}

func newEntry(id, tenantID string, ts time.Time) audit.Entry {
	return audit.Entry{
		ID:        id,
		TenantID:  tenantID,
		SubjectID: "u1",
		Role:      domain.RoleAdmin,
		Action:    audit.ActionCardDelete,
		Resource:  tenantID + "#CARD#c-1",
		Timestamp: ts,
		Success:   true,
		ExpiresAt: ts.Add(audit.RetentionWindow),
	}
}

func (s *PostgresStoreSuite) TestAppendAndQueryRoundTrip() {
	ctx := context.Background()
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	want := newEntry("01ARZ3NDEKTSV4RRFFQ69G5FAV", "T1", ts)
	want.TargetSubjectID = "u2"
	want.Details = "admin reviewed member card"
	s.Require().NoError(s.store.Append(ctx, want))

	got, err := s.store.Query(ctx, "T1", ts.Add(-time.Minute), ts.Add(time.Minute), audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(got, 1)

	s.Equal(want.ID, got[0].ID)
	s.Equal(want.TenantID, got[0].TenantID)
	s.Equal(want.Role, got[0].Role)
	s.Equal(want.Action, got[0].Action)
	s.Equal(want.TargetSubjectID, got[0].TargetSubjectID)
	s.Equal(want.Details, got[0].Details)
	s.True(want.Timestamp.Equal(got[0].Timestamp))
	s.True(want.ExpiresAt.Equal(got[0].ExpiresAt))
}

func (s *PostgresStoreSuite) TestAppendIdempotentOnID() {
	ctx := context.Background()
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	e := newEntry("01ARZ3NDEKTSV4RRFFQ69G5FAV", "T1", ts)
	s.Require().NoError(s.store.Append(ctx, e))
	s.Require().NoError(s.store.Append(ctx, e))

	got, err := s.store.Query(ctx, "T1", ts.Add(-time.Minute), ts.Add(time.Minute), audit.Filter{})
	s.Require().NoError(err)
	s.Len(got, 1)
}

// TestConcurrentAppendsDistinctIDs verifies that concurrent writers with
// distinct IDs all land, even with identical timestamps.
func (s *PostgresStoreSuite) TestConcurrentAppendsDistinctIDs() {
	ctx := context.Background()
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{
		"01ARZ3NDEKTSV4RRFFQ69G5FA0",
		"01ARZ3NDEKTSV4RRFFQ69G5FA1",
		"01ARZ3NDEKTSV4RRFFQ69G5FA2",
		"01ARZ3NDEKTSV4RRFFQ69G5FA3",
		"01ARZ3NDEKTSV4RRFFQ69G5FA4",
		"01ARZ3NDEKTSV4RRFFQ69G5FA5",
		"01ARZ3NDEKTSV4RRFFQ69G5FA6",
		"01ARZ3NDEKTSV4RRFFQ69G5FA7",
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.NoError(s.store.Append(ctx, newEntry(id, "T1", ts)))
		}(id)
	}
	wg.Wait()

	got, err := s.store.Query(ctx, "T1", ts, ts, audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(got, len(ids))
	for i := 1; i < len(got); i++ {
		s.Less(got[i-1].ID, got[i].ID, "query must order by id")
	}
}

func (s *PostgresStoreSuite) TestQueryFilters() {
	ctx := context.Background()
	ts := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	a := newEntry("01BRZ3NDEKTSV4RRFFQ69G5FA0", "T1", ts)
	b := newEntry("01BRZ3NDEKTSV4RRFFQ69G5FA1", "T1", ts.Add(time.Second))
	b.SubjectID = "u2"
	b.Action = audit.ActionBudgetUpdate
	b.Success = false
	b.ErrorMessage = "denied"
	c := newEntry("01BRZ3NDEKTSV4RRFFQ69G5FA2", "T2", ts)

	for _, e := range []audit.Entry{a, b, c} {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	from, to := ts.Add(-time.Minute), ts.Add(time.Minute)

	got, err := s.store.Query(ctx, "T1", from, to, audit.Filter{})
	s.Require().NoError(err)
	s.Len(got, 2, "tenant scoping must exclude T2")

	got, err = s.store.Query(ctx, "T1", from, to, audit.Filter{SubjectID: "u2"})
	s.Require().NoError(err)
	s.Len(got, 1)

	success := false
	got, err = s.store.Query(ctx, "T1", from, to, audit.Filter{Action: audit.ActionBudgetUpdate, Success: &success})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("denied", got[0].ErrorMessage)
}
