package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	naimatauth "github.com/amnashah110/naimat-auth"
)

// MemoryDirectory is a map-backed UserDirectory keyed by email. Used in
// tests and by the dev profile of the server binary.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]naimatauth.User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users: make(map[string]naimatauth.User),
	}
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (naimatauth.User, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[email]
	return user, ok, nil
}

func (d *MemoryDirectory) Create(_ context.Context, email string, profile naimatauth.Profile) (naimatauth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[email]; exists {
		return naimatauth.User{}, naimatauth.ErrIdentityConflict
	}

	user := naimatauth.User{
		ID:    uuid.New().String(),
		Email: email,
		Name:  profile.Name,
	}
	d.users[email] = user
	return user, nil
}

// Seed inserts a user without going through the signup flow. Test helper.
func (d *MemoryDirectory) Seed(user naimatauth.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.Email] = user
}
