package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User)}
}

func (r *memoryRepo) List(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) Create(ctx context.Context, u User) (int64, error) {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return 0, ErrDuplicate
		}
	}
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, u User) error {
	if _, ok := r.users[u.ID]; !ok {
		return ErrNotFound
	}
	r.users[u.ID] = u
	return nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	r.users[id] = u
	return nil
}

type memoryInvalidator struct {
	invalidated []int64
}

func (i *memoryInvalidator) Invalidate(ctx context.Context, actorID int64) {
	i.invalidated = append(i.invalidated, actorID)
}

func TestCreateHashesPasswordAndActivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryInvalidator{})

	u, err := svc.Create(context.Background(), CreateInput{
		Email:    "  Designer@Atelier.Local ",
		Name:     "Lead Designer",
		Password: "correct horse",
		Role:     RoleDesigner,
	})
	require.NoError(t, err)
	require.Equal(t, "designer@atelier.local", u.Email)
	require.True(t, u.IsActive)
	require.NotEqual(t, "correct horse", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &memoryInvalidator{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "a@b.c", Password: "short", Role: RoleDesigner})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Email: "", Password: "long enough", Role: RoleDesigner})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Email: "a@b.c", Password: "long enough", Role: Role("intern")})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryRepo(), &memoryInvalidator{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "a@b.c", Password: "long enough", Role: RoleDesigner})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Email: "A@B.C", Password: "long enough", Role: RoleBuyer})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestFactoryBindingDroppedForOtherRoles(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryInvalidator{})
	ctx := context.Background()
	factoryID := int64(12)

	u, err := svc.Create(ctx, CreateInput{Email: "f@atelier.local", Password: "long enough", Role: RoleFactory, FactoryID: &factoryID})
	require.NoError(t, err)
	require.NotNil(t, u.FactoryID)
	require.Equal(t, factoryID, *u.FactoryID)

	// Promoting the account off the factory role clears the binding.
	u, err = svc.Update(ctx, u.ID, UpdateInput{Name: u.Name, Role: RoleChinaOffice, FactoryID: &factoryID})
	require.NoError(t, err)
	require.Nil(t, u.FactoryID)
}

func TestUpdateInvalidatesPermissions(t *testing.T) {
	repo := newMemoryRepo()
	inv := &memoryInvalidator{}
	svc := NewService(repo, inv)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "a@b.c", Password: "long enough", Role: RoleDesigner})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, u.ID, UpdateInput{Name: "New Name", Role: RoleConstructor})
	require.NoError(t, err)
	require.Equal(t, RoleConstructor, updated.Role)
	require.Equal(t, []int64{u.ID}, inv.invalidated)
}

func TestDeactivateKeepsRecord(t *testing.T) {
	repo := newMemoryRepo()
	inv := &memoryInvalidator{}
	svc := NewService(repo, inv)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "a@b.c", Password: "long enough", Role: RoleBuyer})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, u.ID))
	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.NoError(t, svc.Reactivate(ctx, u.ID))
	got, err = svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	require.Equal(t, []int64{u.ID, u.ID}, inv.invalidated)
}

func TestDeactivateUnknownAccount(t *testing.T) {
	svc := NewService(newMemoryRepo(), &memoryInvalidator{})
	require.ErrorIs(t, svc.Deactivate(context.Background(), 404), ErrNotFound)
}
