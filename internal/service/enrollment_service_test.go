package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/testfixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	subjectX = 1
	subjectY = 2
	room101  = 101
	room102  = 102
)

func intPtr(v int) *int { return &v }

func newEnrollmentEnv(t *testing.T) (*EnrollmentService, *testfixtures.EnrollmentStore) {
	t.Helper()
	store := testfixtures.NewEnrollmentStore()
	store.AddSubject(model.Subject{ID: subjectX, Name: "Mathematics", Code: "MATH"})
	store.AddSubject(model.Subject{ID: subjectY, Name: "Physics", Code: "PHYS"})
	store.AddRoom(model.Room{ID: room101, Number: "101", Capacity: intPtr(2)})
	store.AddRoom(model.Room{ID: room102, Number: "102"})
	for id := 1; id <= 20; id++ {
		store.AddStudent(model.Student{ID: id, StudentNumber: "S" + strconv.Itoa(id), Name: "Student " + strconv.Itoa(id)})
	}
	return NewEnrollmentService(store, zerolog.Nop()), store
}

func conflictCodes(conflicts []model.Conflict) []model.ConflictCode {
	codes := make([]model.ConflictCode, 0, len(conflicts))
	for _, c := range conflicts {
		codes = append(codes, c.Code)
	}
	return codes
}

func TestEvaluateConflicts(t *testing.T) {
	room := &model.Room{ID: room101, Number: "101", Capacity: intPtr(2)}
	unlimited := &model.Room{ID: room102, Number: "102"}

	tests := []struct {
		name string
		snap *model.ConflictSnapshot
		cand model.EnrollmentRequest
		want []model.ConflictCode
	}{
		{
			name: "nothing recorded",
			snap: &model.ConflictSnapshot{},
			cand: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1},
			want: []model.ConflictCode{},
		},
		{
			name: "duplicate",
			snap: &model.ConflictSnapshot{AlreadyEnrolled: true},
			cand: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1},
			want: []model.ConflictCode{model.ConflictDuplicateEnrollment},
		},
		{
			name: "room below capacity",
			snap: &model.ConflictSnapshot{Room: room, RoomEnrollmentCount: 1, RoomSubjectIDs: []int{subjectX}},
			cand: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room101)},
			want: []model.ConflictCode{},
		},
		{
			name: "room at capacity",
			snap: &model.ConflictSnapshot{Room: room, RoomEnrollmentCount: 2, RoomSubjectIDs: []int{subjectX}},
			cand: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room101)},
			want: []model.ConflictCode{model.ConflictRoomCapacity},
		},
		{
			name: "no declared capacity",
			snap: &model.ConflictSnapshot{Room: unlimited, RoomEnrollmentCount: 500, RoomSubjectIDs: []int{subjectX}},
			cand: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room102)},
			want: []model.ConflictCode{},
		},
		{
			name: "room holds another subject",
			snap: &model.ConflictSnapshot{Room: room, RoomEnrollmentCount: 1, RoomSubjectIDs: []int{subjectX}},
			cand: model.EnrollmentRequest{SubjectID: subjectY, StudentID: 1, RoomID: intPtr(room101)},
			want: []model.ConflictCode{model.ConflictRoomSubjectMismatch},
		},
		{
			name: "every rule at once keeps the order",
			snap: &model.ConflictSnapshot{AlreadyEnrolled: true, Room: room, RoomEnrollmentCount: 2, RoomSubjectIDs: []int{subjectX, subjectY}},
			cand: model.EnrollmentRequest{SubjectID: subjectY, StudentID: 1, RoomID: intPtr(room101)},
			want: []model.ConflictCode{
				model.ConflictDuplicateEnrollment,
				model.ConflictRoomCapacity,
				model.ConflictRoomSubjectMismatch,
			},
		},
		{
			name: "nil snapshot",
			snap: nil,
			cand: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1},
			want: []model.ConflictCode{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateConflicts(tt.snap, tt.cand)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, conflictCodes(got))
		})
	}
}

func TestEvaluateConflicts_Messages(t *testing.T) {
	room := &model.Room{ID: room101, Capacity: intPtr(1)}
	got := EvaluateConflicts(
		&model.ConflictSnapshot{AlreadyEnrolled: true, Room: room, RoomEnrollmentCount: 1, RoomSubjectIDs: []int{subjectY}},
		model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room101)},
	)
	require.Len(t, got, 3)
	assert.Equal(t, "Student is already enrolled in this subject.", got[0].Message)
	assert.Equal(t, "Room capacity exceeded.", got[1].Message)
	assert.Equal(t, "Room is already assigned to another subject.", got[2].Message)
}

func TestCreateEnrollment_RoomCapacity(t *testing.T) {
	svc, store := newEnrollmentEnv(t)
	ctx := context.Background()

	for _, student := range []int{1, 2} {
		e, err := svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: student, RoomID: intPtr(room101)})
		require.NoError(t, err)
		require.NotNil(t, e.CreatedBy)
		assert.Equal(t, teacherA, *e.CreatedBy)
	}

	third := model.EnrollmentRequest{SubjectID: subjectX, StudentID: 3, RoomID: intPtr(room101)}
	conflicts, err := svc.CheckConflicts(ctx, third)
	require.NoError(t, err)
	assert.Equal(t, []model.ConflictCode{model.ConflictRoomCapacity}, conflictCodes(conflicts))

	_, err = svc.CreateEnrollment(ctx, teacherA, third)
	require.ErrorIs(t, err, ErrEnrollmentConflict)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	require.Len(t, ce.Conflicts, 1)
	assert.Equal(t, "Room capacity exceeded.", ce.Conflicts[0].Message)
	assert.Equal(t, 2, store.CountInRoom(room101))
}

func TestCreateEnrollment_RoomSubjectExclusivity(t *testing.T) {
	svc, _ := newEnrollmentEnv(t)
	ctx := context.Background()

	_, err := svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room101)})
	require.NoError(t, err)

	other := model.EnrollmentRequest{SubjectID: subjectY, StudentID: 4, RoomID: intPtr(room101)}
	conflicts, err := svc.CheckConflicts(ctx, other)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Room is already assigned to another subject.", conflicts[0].Message)

	_, err = svc.CreateEnrollment(ctx, teacherA, other)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []model.ConflictCode{model.ConflictRoomSubjectMismatch}, conflictCodes(ce.Conflicts))
}

func TestCreateEnrollment_Duplicate(t *testing.T) {
	svc, _ := newEnrollmentEnv(t)
	ctx := context.Background()

	_, err := svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1})
	require.NoError(t, err)

	_, err = svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room102)})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []model.ConflictCode{model.ConflictDuplicateEnrollment}, conflictCodes(ce.Conflicts))

	list, err := svc.ListEnrollments(ctx, model.EnrollmentFilter{StudentID: intPtr(1)})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateEnrollment_CapacityPlusOne(t *testing.T) {
	svc, store := newEnrollmentEnv(t)
	ctx := context.Background()

	const capacity = 5
	store.AddRoom(model.Room{ID: 300, Number: "300", Capacity: intPtr(capacity)})

	for student := 1; student <= capacity; student++ {
		_, err := svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: student, RoomID: intPtr(300)})
		require.NoError(t, err)
	}

	conflicts, err := svc.CheckConflicts(ctx, model.EnrollmentRequest{SubjectID: subjectX, StudentID: capacity + 1, RoomID: intPtr(300)})
	require.NoError(t, err)
	assert.Contains(t, conflictCodes(conflicts), model.ConflictRoomCapacity)
}

func TestCreateEnrollment_ConcurrentAtCapacity(t *testing.T) {
	svc, store := newEnrollmentEnv(t)
	ctx := context.Background()
	store.AddRoom(model.Room{ID: 400, Number: "400", Capacity: intPtr(3)})

	const contenders = 15
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		refused  int
	)
	for student := 1; student <= contenders; student++ {
		wg.Add(1)
		go func(studentID int) {
			defer wg.Done()
			_, err := svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: studentID, RoomID: intPtr(400)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrEnrollmentConflict):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(student)
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, contenders-3, refused)
	assert.Equal(t, 3, store.CountInRoom(400))
}

func TestCreateEnrollment_Errors(t *testing.T) {
	svc, _ := newEnrollmentEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   model.EnrollmentRequest
		want error
	}{
		{name: "missing subject", in: model.EnrollmentRequest{StudentID: 1}, want: ErrValidation},
		{name: "missing student", in: model.EnrollmentRequest{SubjectID: subjectX}, want: ErrValidation},
		{name: "bad room id", in: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(0)}, want: ErrValidation},
		{name: "unknown room", in: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(999)}, want: ErrRoomNotFound},
		{name: "unknown student", in: model.EnrollmentRequest{SubjectID: subjectX, StudentID: 999}, want: ErrReferenceNotFound},
		{name: "unknown subject", in: model.EnrollmentRequest{SubjectID: 999, StudentID: 1}, want: ErrReferenceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEnrollment(ctx, teacherA, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.CheckConflicts(ctx, model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(999)})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeleteEnrollment(t *testing.T) {
	svc, store := newEnrollmentEnv(t)
	ctx := context.Background()

	e, err := svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectX, StudentID: 1, RoomID: intPtr(room101)})
	require.NoError(t, err)

	detail, err := svc.GetEnrollment(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", detail.SubjectName)
	require.NotNil(t, detail.RoomNumber)
	assert.Equal(t, "101", *detail.RoomNumber)

	require.NoError(t, svc.DeleteEnrollment(ctx, e.ID))
	assert.Equal(t, 0, store.CountInRoom(room101))
	assert.ErrorIs(t, svc.DeleteEnrollment(ctx, e.ID), ErrEnrollmentNotFound)

	_, err = svc.GetEnrollment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)

	// Freed capacity and room ownership apply to the next candidate.
	_, err = svc.CreateEnrollment(ctx, teacherA, model.EnrollmentRequest{SubjectID: subjectY, StudentID: 2, RoomID: intPtr(room101)})
	assert.NoError(t, err)
}

func TestConflictError(t *testing.T) {
	err := error(&ConflictError{Conflicts: []model.Conflict{
		model.NewConflict(model.ConflictDuplicateEnrollment),
		model.NewConflict(model.ConflictRoomCapacity),
	}})
	assert.ErrorIs(t, err, ErrEnrollmentConflict)
	assert.Contains(t, err.Error(), "DUPLICATE_ENROLLMENT, ROOM_CAPACITY_EXCEEDED")
}
