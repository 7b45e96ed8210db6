package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceLifecycle(t *testing.T) {
	env := newAttendanceEnv(t)
	t0 := env.clock.Now()
	const student = 1

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)
	original := session.Pin

	// Correct PIN marks the student once.
	env.clock.Set(t0.Add(2 * time.Minute))
	first, err := env.attendance.SubmitPin(env.ctx, student, original)
	require.NoError(t, err)
	assert.False(t, first.AlreadyMarked)
	assert.Equal(t, "Mathematics", first.CourseName)
	assert.Equal(t, t0.Add(2*time.Minute), first.Record.MarkedAt)
	assert.Equal(t, 1, env.store.RecordCount(session.ID, student))

	// Resubmitting is a success that changes nothing.
	env.clock.Set(t0.Add(3 * time.Minute))
	second, err := env.attendance.SubmitPin(env.ctx, student, original)
	require.NoError(t, err)
	assert.True(t, second.AlreadyMarked)
	assert.Equal(t, first.Record.MarkedAt, second.Record.MarkedAt)
	assert.Equal(t, 1, env.store.RecordCount(session.ID, student))

	// A regenerated PIN retires the original one.
	env.clock.Set(t0.Add(4 * time.Minute))
	regenerated, err := env.sessions.RegeneratePin(env.ctx, teacherA, session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, original, regenerated.Pin)

	env.clock.Set(t0.Add(5 * time.Minute))
	_, err = env.attendance.SubmitPin(env.ctx, 2, original)
	assert.ErrorIs(t, err, ErrInvalidPin)

	// Ending the session rejects even the current PIN.
	env.clock.Set(t0.Add(6 * time.Minute))
	_, err = env.sessions.EndSession(env.ctx, teacherA, session.ID)
	require.NoError(t, err)

	env.clock.Set(t0.Add(7 * time.Minute))
	_, err = env.attendance.SubmitPin(env.ctx, 3, regenerated.Pin)
	assert.ErrorIs(t, err, ErrInvalidPin)

	attendees, err := env.attendance.GetAttendees(env.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	assert.Equal(t, "Student 1", attendees[0].StudentName)
	assert.Equal(t, "student1@school.test", attendees[0].StudentEmail)

	assert.Equal(t, []model.SessionEventType{
		model.EventAttendeeMarked,
		model.EventPinRegenerated,
		model.EventSessionEnded,
	}, env.notifier.Types())
	marked := env.notifier.Events()[0]
	require.NotNil(t, marked.Attendee)
	assert.Equal(t, student, marked.Attendee.StudentID)
}

func TestSubmitPin_ExpiryIsTheGate(t *testing.T) {
	env := newAttendanceEnv(t)
	t0 := env.clock.Now()

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)

	env.clock.Set(t0.Add(10*time.Minute - time.Second))
	_, err = env.attendance.SubmitPin(env.ctx, 1, session.Pin)
	require.NoError(t, err)

	env.clock.Set(t0.Add(10 * time.Minute))
	_, err = env.attendance.SubmitPin(env.ctx, 2, session.Pin)
	assert.ErrorIs(t, err, ErrInvalidPin)

	// The stored PIN still matches; only the clock rejects it.
	stored, err := env.store.GetByID(env.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Pin, stored.Pin)
}

func TestSubmitPin_Validation(t *testing.T) {
	env := newAttendanceEnv(t)

	_, err := env.attendance.SubmitPin(env.ctx, 0, "123456")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.attendance.SubmitPin(env.ctx, 1, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.attendance.SubmitPin(env.ctx, 1, "000000")
	assert.ErrorIs(t, err, ErrInvalidPin)
}

func TestSubmitPin_TrimsWhitespace(t *testing.T) {
	env := newAttendanceEnv(t)

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)

	res, err := env.attendance.SubmitPin(env.ctx, 1, "  "+session.Pin+"\n")
	require.NoError(t, err)
	assert.Equal(t, session.ID, res.Record.SessionID)
}

func TestSubmitPin_UnknownStudent(t *testing.T) {
	env := newAttendanceEnv(t)

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)

	_, err = env.attendance.SubmitPin(env.ctx, 9999, session.Pin)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestSubmitPin_IndexFallbacks(t *testing.T) {
	t.Run("cache miss heals the index", func(t *testing.T) {
		env := newAttendanceEnv(t)
		env.pins.Err = errors.New("redis down")
		session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
		require.NoError(t, err, "index failures never block starting a session")
		env.pins.Err = nil
		require.False(t, env.pins.Has(session.Pin))

		_, err = env.attendance.SubmitPin(env.ctx, 1, session.Pin)
		require.NoError(t, err)
		assert.True(t, env.pins.Has(session.Pin))
	})

	t.Run("cache unavailable", func(t *testing.T) {
		env := newAttendanceEnv(t)
		session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
		require.NoError(t, err)

		env.pins.Err = errors.New("redis down")
		res, err := env.attendance.SubmitPin(env.ctx, 1, session.Pin)
		require.NoError(t, err)
		assert.False(t, res.AlreadyMarked)
	})

	t.Run("stale entry points at the wrong session", func(t *testing.T) {
		env := newAttendanceEnv(t)
		session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
		require.NoError(t, err)

		require.NoError(t, env.pins.Put(env.ctx, "999999", session.ID, time.Hour))
		if session.Pin != "999999" {
			_, err = env.attendance.SubmitPin(env.ctx, 1, "999999")
			assert.ErrorIs(t, err, ErrInvalidPin)
		}

		require.NoError(t, env.pins.Put(env.ctx, session.Pin, uuid.New(), time.Hour))
		_, err = env.attendance.SubmitPin(env.ctx, 1, session.Pin)
		require.NoError(t, err)
	})
}

func TestSubmitPin_ConcurrentStudents(t *testing.T) {
	env := newAttendanceEnv(t)

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)

	const students = 30
	var wg sync.WaitGroup
	errs := make(chan error, students)
	for id := 1; id <= students; id++ {
		wg.Add(1)
		go func(studentID int) {
			defer wg.Done()
			_, err := env.attendance.SubmitPin(env.ctx, studentID, session.Pin)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	attendees, err := env.attendance.GetAttendees(env.ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, students)
}

func TestSubmitPin_ConcurrentSameStudent(t *testing.T) {
	env := newAttendanceEnv(t)

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)

	const attempts = 12
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.attendance.SubmitPin(env.ctx, 5, session.Pin)
			if !assert.NoError(t, err) {
				return
			}
			if !res.AlreadyMarked {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, env.store.RecordCount(session.ID, 5))
	assert.Len(t, env.notifier.Events(), 1)
}

func TestGetAttendees_Ordering(t *testing.T) {
	env := newAttendanceEnv(t)
	t0 := env.clock.Now()

	session, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)

	submit := func(at time.Duration, studentID int) {
		env.clock.Set(t0.Add(at))
		_, err := env.attendance.SubmitPin(env.ctx, studentID, session.Pin)
		require.NoError(t, err)
	}
	submit(time.Minute, 3)
	submit(2*time.Minute, 2)
	submit(2*time.Minute, 1)

	attendees, err := env.attendance.GetAttendees(env.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{attendees[0].StudentID, attendees[1].StudentID, attendees[2].StudentID})

	empty, err := env.attendance.GetAttendees(env.ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListStudentAttendance(t *testing.T) {
	env := newAttendanceEnv(t)

	math, err := env.sessions.StartSession(env.ctx, teacherA, StartSessionInput{CourseName: "Mathematics", DurationMinutes: 10})
	require.NoError(t, err)
	physics, err := env.sessions.StartSession(env.ctx, teacherB, StartSessionInput{CourseName: "Physics", DurationMinutes: 10})
	require.NoError(t, err)

	_, err = env.attendance.SubmitPin(env.ctx, 4, math.Pin)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.attendance.SubmitPin(env.ctx, 4, physics.Pin)
	require.NoError(t, err)

	history, err := env.attendance.ListStudentAttendance(env.ctx, 4)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	none, err := env.attendance.ListStudentAttendance(env.ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
