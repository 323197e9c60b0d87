package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/eduquest/user-service/internal/domain/entity"
	repo "github.com/eduquest/user-service/internal/domain/repository"
	"github.com/eduquest/user-service/pkg/helpers"
	"github.com/eduquest/user-service/pkg/ticket"
)

// stubStore is an in-memory repository.UserRepository used across the
// service tests.
type stubStore struct {
	users  map[string]*entity.User
	nextID int

	failWith error // when set, every call returns this error
}

func newStubStore() *stubStore {
	return &stubStore{users: map[string]*entity.User{}}
}

func (s *stubStore) byEmail(email string) *entity.User {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *stubStore) Create(ctx context.Context, u *entity.User) error {
	if s.failWith != nil {
		return s.failWith
	}
	if s.byEmail(u.Email) != nil {
		return repo.ErrDuplicateEmail
	}
	s.nextID++
	u.ID = fmt.Sprintf("u-%d", s.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubStore) get(id string) (*entity.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.get(id)
}

func (s *stubStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	u := s.byEmail(email)
	if u == nil {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) mutate(id string, fn func(*entity.User)) error {
	if s.failWith != nil {
		return s.failWith
	}
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (s *stubStore) UpdateName(ctx context.Context, id, name string) error {
	return s.mutate(id, func(u *entity.User) { u.Name = name })
}

func (s *stubStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.mutate(id, func(u *entity.User) { u.PasswordHash = hash })
}

func (s *stubStore) UpdateAvatar(ctx context.Context, id, url string) error {
	return s.mutate(id, func(u *entity.User) { u.AvatarURL = url })
}

func (s *stubStore) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	if err := s.mutate(id, func(u *entity.User) { u.Role = role }); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *stubStore) SetResetToken(ctx context.Context, id, token, code string, expires time.Time) error {
	return s.mutate(id, func(u *entity.User) {
		u.ResetToken = &token
		u.ResetCode = &code
		u.ResetTokenExpires = &expires
	})
}

func (s *stubStore) CompleteReset(ctx context.Context, id, passwordHash string) error {
	if s.failWith != nil {
		return s.failWith
	}
	u, ok := s.users[id]
	if !ok || u.ResetToken == nil {
		return repo.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetCode = nil
	u.ResetTokenExpires = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (s *stubStore) AppendCourse(ctx context.Context, id, courseID string) error {
	return s.mutate(id, func(u *entity.User) { u.Courses = append(u.Courses, courseID) })
}

func (s *stubStore) SetVerified(ctx context.Context, id string, v bool) error {
	return s.mutate(id, func(u *entity.User) { u.IsVerified = v })
}

func (s *stubStore) SetBlocked(ctx context.Context, id string, v bool) error {
	return s.mutate(id, func(u *entity.User) { u.IsBlocked = v })
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubStore) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*entity.User
	for _, u := range s.users {
		if u.Role == role {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubStore) MonthlySignups(ctx context.Context, role entity.Role, months int) ([]entity.MonthlyCount, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return []entity.MonthlyCount{{Month: "2026-08", Count: len(s.users)}}, nil
}

type stubNotifier struct {
	activations []string
	resets      []string
	err         error
}

func (n *stubNotifier) ActivationCode(ctx context.Context, name, email, code string) error {
	n.activations = append(n.activations, code)
	return n.err
}

func (n *stubNotifier) ResetCode(ctx context.Context, name, email, userID, code string) error {
	n.resets = append(n.resets, code)
	return n.err
}

type stubObjects struct {
	keys []string
	err  error
}

func (o *stubObjects) Store(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	o.keys = append(o.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func newTestService(t *testing.T) (*Service, *stubStore, *stubNotifier) {
	t.Helper()
	store := newStubStore()
	notifier := &stubNotifier{}
	svc := NewService(
		store,
		ticket.NewCodec("test-secret", 5*time.Minute, 5*time.Minute),
		helpers.NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour),
		&stubObjects{},
		notifier,
		nil, // redis
		nil, // elasticsearch
		"",
		nil, // logger
		"avatars",
	)
	return svc, store, notifier
}

func TestRegisterIssuesActivationWithoutPersisting(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Activation == nil || res.Credentials != nil {
		t.Fatalf("expected activation outcome, got %+v", res)
	}
	if res.Activation.Token == "" || len(res.Activation.ActivationCode) != 6 {
		t.Errorf("bad activation payload: %+v", res.Activation)
	}
	if len(store.users) != 0 {
		t.Errorf("registration must not create a user before activation")
	}
	if len(notifier.activations) != 1 || notifier.activations[0] != res.Activation.ActivationCode {
		t.Errorf("activation code not delivered out of band: %v", notifier.activations)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if err := store.Create(ctx, &entity.User{Name: "Alice", Email: "alice@example.com", Role: entity.RoleUser}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, "Other", "alice@example.com", "secret123", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSocialRegisterCreatesActiveAccount(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "", "https://pic/1.png")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Credentials == nil || res.Activation != nil {
		t.Fatalf("expected credentials outcome, got %+v", res)
	}
	if res.Credentials.AccessToken == "" || res.Credentials.RefreshToken == "" {
		t.Error("expected both tokens")
	}
	u := store.byEmail("alice@example.com")
	if u == nil {
		t.Fatal("social registration must create the account")
	}
	if u.AvatarURL != "https://pic/1.png" || u.Role != entity.RoleUser {
		t.Errorf("user = %+v", u)
	}
}

func TestSocialRegisterExistingEmailLogsIn(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "Alice", "alice@example.com", "", "https://pic/1.png")
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.Register(ctx, "Alice", "alice@example.com", "", "https://pic/2.png")
	if err != nil {
		t.Fatalf("second social register: %v", err)
	}
	if again.Credentials == nil {
		t.Fatal("expected credentials for existing social account")
	}
	if again.Credentials.User.ID != first.Credentials.User.ID {
		t.Error("expected the same account, not a new one")
	}
	if len(store.users) != 1 {
		t.Errorf("expected 1 user, got %d", len(store.users))
	}
}

func TestActivateCreatesUser(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Activate(ctx, res.Activation.Token, res.Activation.ActivationCode); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	u := store.byEmail("alice@example.com")
	if u == nil {
		t.Fatal("activation must create the account")
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret123" {
		t.Error("password must be stored hashed")
	}
	if u.IsVerified || u.IsBlocked {
		t.Errorf("fresh account flags: verified=%v blocked=%v", u.IsVerified, u.IsBlocked)
	}
}

func TestActivateWrongCode(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", "")
	if err != nil {
		t.Fatal(err)
	}
	wrong := "000000"
	if wrong == res.Activation.ActivationCode {
		wrong = "000001"
	}
	if err := svc.Activate(ctx, res.Activation.Token, wrong); !errors.Is(err, ErrInvalidActivationCode) {
		t.Fatalf("expected ErrInvalidActivationCode, got %v", err)
	}
	if len(store.users) != 0 {
		t.Error("failed activation must not create a user")
	}
}

func TestActivateExpiredToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", "")
	if err != nil {
		t.Fatal(err)
	}
	svc.Tickets.Now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	if err := svc.Activate(ctx, res.Activation.Token, res.Activation.ActivationCode); !errors.Is(err, ErrActivationInvalid) {
		t.Fatalf("expected ErrActivationInvalid, got %v", err)
	}
}

func TestActivateTwiceYieldsOneAccount(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Activate(ctx, res.Activation.Token, res.Activation.ActivationCode); err != nil {
		t.Fatal(err)
	}
	if err := svc.Activate(ctx, res.Activation.Token, res.Activation.ActivationCode); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("second activation: got %v, want ErrEmailTaken", err)
	}
	if len(store.users) != 1 {
		t.Errorf("expected 1 account, got %d", len(store.users))
	}
}

func TestActivateLosesEmailRace(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", "")
	if err != nil {
		t.Fatal(err)
	}
	// A second registration for the same email wins the race.
	if err := store.Create(ctx, &entity.User{Name: "Other", Email: "alice@example.com", Role: entity.RoleUser}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Activate(ctx, res.Activation.Token, res.Activation.ActivationCode); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(store.users) != 1 {
		t.Errorf("expected exactly the winner's account, got %d users", len(store.users))
	}
}

func activateUser(t *testing.T, svc *Service, store *stubStore, email, password string) *entity.User {
	t.Helper()
	res, err := svc.Register(context.Background(), "Alice", email, password, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Activate(context.Background(), res.Activation.Token, res.Activation.ActivationCode); err != nil {
		t.Fatal(err)
	}
	return store.byEmail(email)
}

func TestLogin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	activateUser(t, svc, store, "alice@example.com", "secret123")

	creds, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" || creds.User == nil {
		t.Errorf("credentials = %+v", creds)
	}

	if _, err := svc.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown email: got %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
}

func TestLoginBlockedAndUnblocked(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	if err := svc.Block(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "secret123"); !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
	// Wrong password on a blocked account still reads as bad credentials.
	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.Unblock(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "secret123"); err != nil {
		t.Fatalf("login after unblock: %v", err)
	}
}

func TestLoginSocialOnlyAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "", "https://pic/1.png"); err != nil {
		t.Fatal(err)
	}
	// Social accounts have an empty hash; no password can match it.
	if _, err := svc.Login(ctx, "alice@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	if err := svc.UpdatePassword(ctx, u.ID, "wrong", "newsecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.UpdatePassword(ctx, u.ID, "secret123", "newsecret"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "newsecret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	issued, err := svc.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if issued.UserID != u.ID || len(notifier.resets) != 1 {
		t.Fatalf("issued = %+v, resets = %v", issued, notifier.resets)
	}
	if got := store.users[u.ID]; !got.HasOpenReset() {
		t.Fatal("reset fields must be persisted together")
	}

	userID, err := svc.VerifyResetCode(ctx, issued.ResetToken, issued.ResetCode)
	if err != nil {
		t.Fatalf("VerifyResetCode: %v", err)
	}
	if userID != u.ID {
		t.Errorf("userID = %q, want %q", userID, u.ID)
	}
	// Verification does not consume the reset; it can be repeated.
	if _, err := svc.VerifyResetCode(ctx, issued.ResetToken, issued.ResetCode); err != nil {
		t.Fatalf("second VerifyResetCode: %v", err)
	}

	if err := svc.ResetPassword(ctx, userID, "brandnew1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if got := store.users[u.ID]; got.HasOpenReset() {
		t.Error("reset fields must be cleared with the password write")
	}
	if _, err := svc.Login(ctx, "alice@example.com", "brandnew1"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	// The cycle is single use.
	if err := svc.ResetPassword(ctx, userID, "another1"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestVerifyResetCodeFailures(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	activateUser(t, svc, store, "alice@example.com", "secret123")

	issued, err := svc.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	wrong := "000000"
	if wrong == issued.ResetCode {
		wrong = "000001"
	}
	if _, err := svc.VerifyResetCode(ctx, issued.ResetToken, wrong); !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("wrong code: got %v", err)
	}
	if _, err := svc.VerifyResetCode(ctx, "garbage", issued.ResetCode); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("garbage token: got %v", err)
	}

	// A newer reset supersedes the stored token; the old ticket still has a
	// valid signature but no longer matches the record.
	fresh, err := svc.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyResetCode(ctx, issued.ResetToken, issued.ResetCode); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("superseded token: got %v", err)
	}
	if _, err := svc.VerifyResetCode(ctx, fresh.ResetToken, fresh.ResetCode); err != nil {
		t.Errorf("fresh token: got %v", err)
	}
}

func TestVerifyResetCodeExpiredWindow(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	activateUser(t, svc, store, "alice@example.com", "secret123")

	issued, err := svc.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	// Both the ticket clock and the service clock move past the window.
	future := func() time.Time { return time.Now().Add(10 * time.Minute) }
	svc.Tickets.Now = future
	svc.Now = future
	if _, err := svc.VerifyResetCode(ctx, issued.ResetToken, issued.ResetCode); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid after expiry, got %v", err)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.ForgotPassword(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateRole(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	got, err := svc.UpdateRole(ctx, u.ID, "instructor")
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if got.Role != entity.RoleInstructor {
		t.Errorf("role = %q", got.Role)
	}

	if _, err := svc.UpdateRole(ctx, u.ID, "superadmin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if store.users[u.ID].Role != entity.RoleInstructor {
		t.Error("invalid role must not change the stored role")
	}

	if _, err := svc.UpdateRole(ctx, "missing", "admin"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateCourseList(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	if err := svc.UpdateCourseList(ctx, u.ID, "course-1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateCourseList(ctx, u.ID, "course-1"); err != nil {
		t.Fatal(err)
	}
	if got := store.users[u.ID].Courses; len(got) != 2 {
		t.Errorf("courses = %v", got)
	}
	if err := svc.UpdateCourseList(ctx, "missing", "course-1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestVerifyAndBlockAreIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	for i := 0; i < 2; i++ {
		if err := svc.Verify(ctx, u.ID); err != nil {
			t.Fatal(err)
		}
		if err := svc.Block(ctx, u.ID); err != nil {
			t.Fatal(err)
		}
	}
	got := store.users[u.ID]
	if !got.IsVerified || !got.IsBlocked {
		t.Errorf("flags: verified=%v blocked=%v", got.IsVerified, got.IsBlocked)
	}
}

func TestUpdateAvatarKeysAndFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	objects := &stubObjects{}
	svc.Objects = objects
	img := testPNG(t)

	if err := svc.UpdateAvatar(ctx, u.ID, img, "image/png"); err != nil {
		t.Fatalf("UpdateAvatar: %v", err)
	}
	if len(objects.keys) != 1 {
		t.Fatalf("keys = %v", objects.keys)
	}
	if store.users[u.ID].AvatarURL == "" {
		t.Error("avatar URL not persisted")
	}

	// A second upload gets a fresh key.
	if err := svc.UpdateAvatar(ctx, u.ID, img, "image/png"); err != nil {
		t.Fatal(err)
	}
	if objects.keys[0] == objects.keys[1] {
		t.Error("avatar keys must not collide")
	}

	before := store.users[u.ID].AvatarURL
	svc.Objects = &stubObjects{err: errors.New("bucket unavailable")}
	if err := svc.UpdateAvatar(ctx, u.ID, img, "image/png"); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	if store.users[u.ID].AvatarURL != before {
		t.Error("failed upload must not touch the user record")
	}
}

func TestDeleteUser(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := activateUser(t, svc, store, "alice@example.com", "secret123")

	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetUser(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestAnalyticsRequiresInstructorID(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Analytics(context.Background(), "  "); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for blank id, got %v", err)
	}
	if _, err := svc.Analytics(context.Background(), "instr-1"); err != nil {
		t.Fatalf("Analytics: %v", err)
	}
}
