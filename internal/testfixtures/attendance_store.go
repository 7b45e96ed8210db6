package testfixtures

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

type recordKey struct {
	session uuid.UUID
	student int
}

// AttendanceStore keeps sessions, records and students in memory with the same
// contract as the pgx repositories: not-found is pgx.ErrNoRows, conditional
// updates report whether a row changed.
type AttendanceStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.AttendanceSession
	records  map[recordKey]model.AttendanceRecord
	students map[int]model.Student
}

// NewAttendanceStore creates an empty store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{
		sessions: make(map[uuid.UUID]model.AttendanceSession),
		records:  make(map[recordKey]model.AttendanceRecord),
		students: make(map[int]model.Student),
	}
}

// AddStudent registers a student that records may reference.
func (s *AttendanceStore) AddStudent(st model.Student) {
	s.mu.Lock()
	s.students[st.ID] = st
	s.mu.Unlock()
}

// RecordCount returns how many records exist for (sessionID, studentID).
func (s *AttendanceStore) RecordCount(sessionID uuid.UUID, studentID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordKey{sessionID, studentID}]; ok {
		return 1
	}
	return 0
}

func (s *AttendanceStore) Create(_ context.Context, sess *model.AttendanceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return repository.ErrDuplicate
	}
	sess.CreatedAt = sess.StartTime
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *AttendanceStore) GetByID(_ context.Context, id uuid.UUID) (*model.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sess, nil
}

// newestWhere returns the match with the latest start time. Callers hold mu.
func (s *AttendanceStore) newestWhere(match func(model.AttendanceSession) bool) (*model.AttendanceSession, error) {
	var found *model.AttendanceSession
	for _, sess := range s.sessions {
		if !match(sess) {
			continue
		}
		if found == nil || sess.StartTime.After(found.StartTime) {
			cp := sess
			found = &cp
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

func (s *AttendanceStore) GetActiveByTeacher(_ context.Context, teacherID int, now time.Time) (*model.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newestWhere(func(sess model.AttendanceSession) bool {
		return sess.TeacherID == teacherID && sess.IsActive(now)
	})
}

func (s *AttendanceStore) FindActiveByPin(_ context.Context, pin string, now time.Time) (*model.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newestWhere(func(sess model.AttendanceSession) bool {
		return sess.Pin == pin && sess.IsActive(now)
	})
}

func (s *AttendanceStore) ActivePinExists(ctx context.Context, pin string, now time.Time) (bool, error) {
	_, err := s.FindActiveByPin(ctx, pin, now)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *AttendanceStore) UpdatePin(_ context.Context, id uuid.UUID, pin string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive(now) {
		return false, nil
	}
	sess.Pin = pin
	s.sessions[id] = sess
	return true, nil
}

func (s *AttendanceStore) EndNow(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive(now) {
		return false, nil
	}
	sess.EndTime = now
	sess.EndedManually = true
	s.sessions[id] = sess
	return true, nil
}

func (s *AttendanceStore) ListByTeacher(_ context.Context, teacherID int, from, to *time.Time) ([]model.SessionHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []model.SessionHistoryEntry
	for _, sess := range s.sessions {
		if sess.TeacherID != teacherID {
			continue
		}
		if from != nil && sess.StartTime.Before(*from) {
			continue
		}
		if to != nil && !sess.StartTime.Before(*to) {
			continue
		}
		count := 0
		for k := range s.records {
			if k.session == sess.ID {
				count++
			}
		}
		entries = append(entries, model.SessionHistoryEntry{AttendanceSession: sess, AttendeeCount: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartTime.After(entries[j].StartTime)
	})
	return entries, nil
}

func (s *AttendanceStore) ListExpiredBetween(_ context.Context, from, to time.Time) ([]model.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []model.AttendanceSession
	for _, sess := range s.sessions {
		if !sess.EndedManually && sess.EndTime.After(from) && !sess.EndTime.After(to) {
			list = append(list, sess)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EndTime.Before(list[j].EndTime) })
	return list, nil
}

func (s *AttendanceStore) Insert(_ context.Context, rec *model.AttendanceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[rec.SessionID]; !ok {
		return false, repository.ErrReferenceNotFound
	}
	if _, ok := s.students[rec.StudentID]; !ok {
		return false, repository.ErrReferenceNotFound
	}
	key := recordKey{rec.SessionID, rec.StudentID}
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = *rec
	return true, nil
}

func (s *AttendanceStore) GetBySessionAndStudent(_ context.Context, sessionID uuid.UUID, studentID int) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordKey{sessionID, studentID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &rec, nil
}

func (s *AttendanceStore) attendee(rec model.AttendanceRecord) model.Attendee {
	st := s.students[rec.StudentID]
	return model.Attendee{
		StudentID:     rec.StudentID,
		StudentNumber: st.StudentNumber,
		StudentName:   st.Name,
		StudentEmail:  st.Email,
		MarkedAt:      rec.MarkedAt,
	}
}

func (s *AttendanceStore) GetAttendee(_ context.Context, sessionID uuid.UUID, studentID int) (*model.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordKey{sessionID, studentID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a := s.attendee(rec)
	return &a, nil
}

func (s *AttendanceStore) ListAttendees(_ context.Context, sessionID uuid.UUID) ([]model.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []model.Attendee
	for k, rec := range s.records {
		if k.session == sessionID {
			list = append(list, s.attendee(rec))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].MarkedAt.Equal(list[j].MarkedAt) {
			return list[i].MarkedAt.Before(list[j].MarkedAt)
		}
		return list[i].StudentID < list[j].StudentID
	})
	return list, nil
}

func (s *AttendanceStore) ListByStudent(_ context.Context, studentID int) ([]model.StudentAttendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []model.StudentAttendance
	for k, rec := range s.records {
		if k.student != studentID {
			continue
		}
		sess := s.sessions[k.session]
		list = append(list, model.StudentAttendance{
			SessionID:  sess.ID,
			CourseName: sess.CourseName,
			Location:   sess.Location,
			StartTime:  sess.StartTime,
			MarkedAt:   rec.MarkedAt,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.After(list[j].StartTime) })
	return list, nil
}
