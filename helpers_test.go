package naimatauth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

// testConfig keeps argon2 at its cost floor so test runs stay fast.
func testConfig() Config {
	cfg := defaultConfig()

	cfg.OTP.EnableIdentifierThrottle = false
	cfg.OTP.EnableIPThrottle = false

	cfg.Code = CodeHashConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}

	cfg.Token.AccessSecret = []byte("test-access-secret-0123456789ab!")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-0123456789a!")

	return cfg
}

type mockDirectory struct {
	mu     sync.Mutex
	users  map[string]User
	nextID int

	findErr   error
	createErr error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users: make(map[string]User),
	}
}

func (d *mockDirectory) FindByEmail(_ context.Context, email string) (User, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findErr != nil {
		return User{}, false, d.findErr
	}
	user, ok := d.users[email]
	return user, ok, nil
}

func (d *mockDirectory) Create(_ context.Context, email string, profile Profile) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.createErr != nil {
		return User{}, d.createErr
	}
	if _, exists := d.users[email]; exists {
		return User{}, ErrIdentityConflict
	}

	d.nextID++
	user := User{
		ID:    "u" + strconv.Itoa(d.nextID),
		Email: email,
		Name:  profile.Name,
	}
	d.users[email] = user
	return user, nil
}

func (d *mockDirectory) seed(user User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.Email] = user
}

type mockMailer struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func newMockMailer() *mockMailer {
	return &mockMailer{
		codes: make(map[string]string),
	}
}

func (m *mockMailer) SendCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.codes[email] = code
	return nil
}

func (m *mockMailer) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func newTestEngine(
	t *testing.T,
	rdb *redis.Client,
	dir UserDirectory,
	mailer EmailSender,
	cfg Config,
) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(dir).
		WithEmailSender(mailer).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	return engine
}
