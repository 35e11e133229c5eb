package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"huntbooking/internal/domain"
	"huntbooking/internal/repository"
	"huntbooking/internal/testutil"
)

type fixture struct {
	svc    *Service
	events *repository.EventRepository
	event  *domain.Event
}

func newFixture(t *testing.T, seats int, cache Cache) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	events := repository.NewEventRepository(db)
	ev, err := domain.NewEvent("ELK", "Elk Hunt", seats, 2000)
	require.NoError(t, err)
	require.NoError(t, events.Create(context.Background(), ev))
	return &fixture{
		svc:    NewService(events, repository.NewTransactor(db), cache, nil),
		events: events,
		event:  ev,
	}
}

func (f *fixture) seats(t *testing.T) int {
	t.Helper()
	n, err := f.events.SeatsAvailable(context.Background(), f.event.ID)
	require.NoError(t, err)
	return n
}

func TestDecrementSeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, nil)

	left, err := f.svc.DecrementSeats(ctx, f.event.ID, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	_, err = f.svc.DecrementSeats(ctx, f.event.ID, 4, 101)
	assert.ErrorIs(t, err, ErrInventoryExhausted)
	assert.Equal(t, 3, f.seats(t))

	_, err = f.svc.DecrementSeats(ctx, f.event.ID, 1, 100)
	assert.ErrorIs(t, err, ErrAlreadyReserved)
	assert.Equal(t, 3, f.seats(t), "failed decrement must roll back")

	_, err = f.svc.DecrementSeats(ctx, 999, 1, 102)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestIncrementSeats_RequiresMatchingDecrement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, nil)

	_, err := f.svc.IncrementSeats(ctx, f.event.ID, 2, 100)
	assert.ErrorIs(t, err, ErrNoPriorDecrement)

	_, err = f.svc.DecrementSeats(ctx, f.event.ID, 2, 100)
	require.NoError(t, err)

	_, err = f.svc.IncrementSeats(ctx, f.event.ID, 3, 100)
	assert.ErrorIs(t, err, ErrMovementMismatch)

	left, err := f.svc.IncrementSeats(ctx, f.event.ID, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, left)

	_, err = f.svc.IncrementSeats(ctx, f.event.ID, 2, 100)
	assert.ErrorIs(t, err, ErrAlreadyRestored)
	assert.Equal(t, 5, f.seats(t))
}

func TestNonPositiveCountPanics(t *testing.T) {
	f := newFixture(t, 5, nil)

	assert.Panics(t, func() { _, _ = f.svc.DecrementSeats(context.Background(), f.event.ID, 0, 1) })
	assert.Panics(t, func() { _, _ = f.svc.IncrementSeats(context.Background(), f.event.ID, -1, 1) })
}

func TestDecrementSeats_ConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, nil)

	var g errgroup.Group
	results := make([]error, 12)
	for i := range results {
		i := i
		g.Go(func() error {
			_, results[i] = f.svc.DecrementSeats(ctx, f.event.ID, 1, int64(1000+i))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok, exhausted := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInventoryExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, 7, exhausted)
	assert.Equal(t, 0, f.seats(t))
}

func TestAvailability_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	f := newFixture(t, 5, NewRedisCache(rdb, 30*time.Second))

	mock.ExpectGet("seats:1").RedisNil()
	mock.ExpectSet("seats:1", 5, 30*time.Second).SetVal("OK")
	seats, err := f.svc.Availability(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, seats)

	mock.ExpectGet("seats:1").SetVal("5")
	seats, err = f.svc.Availability(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, seats)

	mock.ExpectDel("seats:1").SetVal(1)
	_, err = f.svc.DecrementSeats(ctx, f.event.ID, 2, 100)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailability_CacheErrorFallsBackToDatabase(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	f := newFixture(t, 4, NewRedisCache(rdb, time.Minute))

	mock.ExpectGet("seats:1").SetErr(errors.New("connection refused"))
	mock.ExpectSet("seats:1", 4, time.Minute).SetErr(errors.New("connection refused"))

	seats, err := f.svc.Availability(context.Background(), f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, seats)
}

func TestDecrementSeats_RollbackSkipsInvalidation(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	db := testutil.NewDB(t)
	events := repository.NewEventRepository(db)
	ev, err := domain.NewEvent("ELK", "Elk Hunt", 5, 2000)
	require.NoError(t, err)
	require.NoError(t, events.Create(ctx, ev))
	tx := repository.NewTransactor(db)
	svc := NewService(events, tx, NewRedisCache(rdb, time.Minute), nil)

	boom := errors.New("boom")
	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := svc.DecrementSeats(ctx, ev.ID, 2, 100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	seats, err := events.SeatsAvailable(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, seats)
	assert.NoError(t, mock.ExpectationsWereMet(), "no redis call expected after rollback")
}
