package testfixtures

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

// EnrollmentStore is an in-memory enrollment store. CreateChecked holds a single
// lock across snapshot, check and insert, standing in for the room row lock.
type EnrollmentStore struct {
	mu          sync.Mutex
	rooms       map[int]model.Room
	subjects    map[int]model.Subject
	students    map[int]model.Student
	enrollments []model.Enrollment
}

// NewEnrollmentStore creates an empty store.
func NewEnrollmentStore() *EnrollmentStore {
	return &EnrollmentStore{
		rooms:    make(map[int]model.Room),
		subjects: make(map[int]model.Subject),
		students: make(map[int]model.Student),
	}
}

func (s *EnrollmentStore) AddRoom(r model.Room) {
	s.mu.Lock()
	s.rooms[r.ID] = r
	s.mu.Unlock()
}

func (s *EnrollmentStore) AddSubject(sub model.Subject) {
	s.mu.Lock()
	s.subjects[sub.ID] = sub
	s.mu.Unlock()
}

func (s *EnrollmentStore) AddStudent(st model.Student) {
	s.mu.Lock()
	s.students[st.ID] = st
	s.mu.Unlock()
}

// CountInRoom returns the number of enrollments referencing roomID.
func (s *EnrollmentStore) CountInRoom(roomID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.enrollments {
		if e.RoomID != nil && *e.RoomID == roomID {
			n++
		}
	}
	return n
}

// snapshot reads the conflict state. Callers hold mu.
func (s *EnrollmentStore) snapshot(subjectID, studentID int, roomID *int) (*model.ConflictSnapshot, error) {
	snap := &model.ConflictSnapshot{RoomSubjectIDs: []int{}}
	if roomID != nil {
		room, ok := s.rooms[*roomID]
		if !ok {
			return nil, pgx.ErrNoRows
		}
		snap.Room = &room
		seen := map[int]bool{}
		for _, e := range s.enrollments {
			if e.RoomID == nil || *e.RoomID != *roomID {
				continue
			}
			snap.RoomEnrollmentCount++
			if !seen[e.SubjectID] {
				seen[e.SubjectID] = true
				snap.RoomSubjectIDs = append(snap.RoomSubjectIDs, e.SubjectID)
			}
		}
	}
	for _, e := range s.enrollments {
		if e.SubjectID == subjectID && e.StudentID == studentID {
			snap.AlreadyEnrolled = true
			break
		}
	}
	return snap, nil
}

func (s *EnrollmentStore) Snapshot(_ context.Context, subjectID, studentID int, roomID *int) (*model.ConflictSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(subjectID, studentID, roomID)
}

func (s *EnrollmentStore) CreateChecked(_ context.Context, e *model.Enrollment, check func(*model.ConflictSnapshot) []model.Conflict) ([]model.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(e.SubjectID, e.StudentID, e.RoomID)
	if err != nil {
		return nil, err
	}
	if conflicts := check(snap); len(conflicts) > 0 {
		return conflicts, nil
	}
	if snap.AlreadyEnrolled {
		return []model.Conflict{model.NewConflict(model.ConflictDuplicateEnrollment)}, nil
	}
	if _, ok := s.subjects[e.SubjectID]; !ok {
		return nil, repository.ErrReferenceNotFound
	}
	if _, ok := s.students[e.StudentID]; !ok {
		return nil, repository.ErrReferenceNotFound
	}

	s.enrollments = append(s.enrollments, *e)
	return nil, nil
}

func (s *EnrollmentStore) detail(e model.Enrollment) model.EnrollmentDetail {
	d := model.EnrollmentDetail{
		Enrollment:    e,
		SubjectName:   s.subjects[e.SubjectID].Name,
		SubjectCode:   s.subjects[e.SubjectID].Code,
		StudentName:   s.students[e.StudentID].Name,
		StudentNumber: s.students[e.StudentID].StudentNumber,
	}
	if e.RoomID != nil {
		if r, ok := s.rooms[*e.RoomID]; ok {
			number := r.Number
			d.RoomNumber = &number
		}
	}
	return d
}

func (s *EnrollmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.EnrollmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.ID == id {
			d := s.detail(e)
			return &d, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *EnrollmentStore) List(_ context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []model.EnrollmentDetail
	for _, e := range s.enrollments {
		if f.SubjectID != nil && e.SubjectID != *f.SubjectID {
			continue
		}
		if f.StudentID != nil && e.StudentID != *f.StudentID {
			continue
		}
		if f.RoomID != nil && (e.RoomID == nil || *e.RoomID != *f.RoomID) {
			continue
		}
		list = append(list, s.detail(e))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *EnrollmentStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.enrollments {
		if e.ID == id {
			s.enrollments = append(s.enrollments[:i], s.enrollments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
