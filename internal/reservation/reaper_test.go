package reservation

import (
	"context"
	"testing"
	"time"

	"ekrini-reservation/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaper_ReleasesExpiredHolds(t *testing.T) {
	svc, _, fc, mr := setupServiceTest(t)
	start, end := days(fc, 2, 5)

	r, err := svc.Create(context.Background(), CreateInput{
		ClientID: "a", CarID: "car-1", StartDate: start, EndDate: end,
	})
	require.NoError(t, err)

	fc.Advance(25 * time.Hour)
	mr.FastForward(25 * time.Hour)

	reaper := &Reaper{Service: svc, Interval: 10 * time.Millisecond}
	reaper.Start()
	defer reaper.Stop()

	require.Eventually(t, func() bool {
		got, err := svc.GetByID(context.Background(), r.ReservationID)
		return err == nil && got.Status == domain.ReservationCancelled
	}, 2*time.Second, 20*time.Millisecond)

	got, err := svc.GetByID(context.Background(), r.ReservationID)
	require.NoError(t, err)
	assert.Contains(t, got.Notes, "Hold expired")
}

func TestReaper_StopHaltsSweeping(t *testing.T) {
	svc, _, _, _ := setupServiceTest(t)

	reaper := &Reaper{Service: svc, Interval: 5 * time.Millisecond}
	reaper.Start()
	reaper.Stop()

	// Stop returns only after the loop has exited.
	select {
	case <-reaper.done:
	default:
		t.Fatal("reaper loop still running after Stop")
	}
}
