package directory

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"beaconattend/internal/apperr"
)

func newTestService() (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(repo, validator.New(), zerolog.Nop()), repo
}

func TestCreateStudentHashesPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	st, err := svc.Create(ctx, KindStudent, Input{
		Name:     " Jane ",
		Email:    "Jane@School.test",
		BeaconID: "AA:BB:CC:DD:EE:FF",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)
	require.Equal(t, "Jane", st.Name)
	require.Equal(t, "jane@school.test", st.Email)
	require.NotEqual(t, "secret1", st.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte("secret1")))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, KindStudent, Input{Name: "Jane", Email: "jane@school.test", BeaconID: "AA"})
	require.True(t, apperr.IsValidation(err), "student without password")

	_, err = svc.Create(ctx, KindTeacher, Input{Name: "Mr. T", Email: "not-an-email", BeaconID: "AA"})
	require.True(t, apperr.IsValidation(err))

	_, err = svc.Create(ctx, KindTeacher, Input{Name: "Mr. T", Email: "t@school.test"})
	require.True(t, apperr.IsValidation(err), "missing beacon id")

	_, err = svc.Create(ctx, Kind("janitor"), Input{Name: "X", Email: "x@school.test", BeaconID: "AA"})
	require.True(t, apperr.IsValidation(err))
}

func TestBeaconUniquenessIsPerKind(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, KindStudent, Input{Name: "Jane", Email: "jane@school.test", BeaconID: "AA:BB", Password: "pass1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, KindStudent, Input{Name: "Jim", Email: "jim@school.test", BeaconID: "AA:BB", Password: "pass2"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	// the same beacon in the teacher directory is accepted
	_, err = svc.Create(ctx, KindTeacher, Input{Name: "Ms. Smith", Email: "smith@school.test", BeaconID: "AA:BB", Subject: "Math"})
	require.NoError(t, err)
}

func TestUpdateKeepsPasswordWhenOmitted(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	st, err := svc.Create(ctx, KindStudent, Input{Name: "Jane", Email: "jane@school.test", BeaconID: "AA", Password: "secret1"})
	require.NoError(t, err)
	hash := st.PasswordHash

	updated, err := svc.Update(ctx, KindStudent, st.ID, Input{Name: "Jane Doe", Email: "jane@school.test", BeaconID: "BB"})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", updated.Name)
	require.Equal(t, "BB", updated.BeaconID)
	require.Equal(t, hash, updated.PasswordHash)
	require.Equal(t, st.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, KindTeacher, st.ID, Input{Name: "X", Email: "x@school.test", BeaconID: "CC"})
	require.ErrorIs(t, err, apperr.ErrNotFound, "student id in the teacher directory")
}

func TestDeleteAndCount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, KindTeacher, Input{Name: "A", Email: "a@school.test", BeaconID: "01"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, KindTeacher, Input{Name: "B", Email: "b@school.test", BeaconID: "02"})
	require.NoError(t, err)

	n, err := svc.Count(ctx, KindTeacher)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, svc.Delete(ctx, KindTeacher, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, KindTeacher, a.ID), apperr.ErrNotFound)

	list, err := svc.List(ctx, KindTeacher)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "B", list[0].Name)
}
