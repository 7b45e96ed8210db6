package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/testfixtures"
)

const (
	teacherA = 7
	teacherB = 8
)

type attendanceEnv struct {
	ctx        context.Context
	clock      *testfixtures.Clock
	store      *testfixtures.AttendanceStore
	pins       *testfixtures.PinIndex
	notifier   *testfixtures.Notifier
	sessions   *AttendanceSessionService
	attendance *AttendanceService
}

func newAttendanceEnv(t *testing.T) *attendanceEnv {
	t.Helper()

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	store := testfixtures.NewAttendanceStore()
	pins := testfixtures.NewPinIndex(clock)
	notifier := &testfixtures.Notifier{}

	for id := 1; id <= 40; id++ {
		store.AddStudent(model.Student{
			ID:            id,
			StudentNumber: "S" + strconv.Itoa(id),
			Name:          "Student " + strconv.Itoa(id),
			Email:         "student" + strconv.Itoa(id) + "@school.test",
		})
	}

	cfg := config.AttendanceConfig{PinLength: 6, DefaultDurationMinutes: 10, MaxDurationMinutes: 240}
	log := zerolog.Nop()

	return &attendanceEnv{
		ctx:        context.Background(),
		clock:      clock,
		store:      store,
		pins:       pins,
		notifier:   notifier,
		sessions:   NewAttendanceSessionService(store, pins, notifier, cfg, log, clock.NowFunc()),
		attendance: NewAttendanceService(store, store, pins, notifier, log, clock.NowFunc()),
	}
}

// pinSequence makes the generator return pins in order, then repeat the last one.
func pinSequence(pins ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		p := pins[i]
		if i < len(pins)-1 {
			i++
		}
		return p, nil
	}
}
