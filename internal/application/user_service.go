package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eduquest/user-service/internal/domain/entity"
	repo "github.com/eduquest/user-service/internal/domain/repository"
	"github.com/eduquest/user-service/pkg/avatar"
	"github.com/eduquest/user-service/pkg/helpers"
	"github.com/eduquest/user-service/pkg/ticket"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailTaken            = errors.New("email already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountBlocked        = errors.New("account is blocked")
	ErrInvalidActivationCode = errors.New("invalid activation code")
	ErrActivationInvalid     = errors.New("invalid or expired activation token")
	ErrInvalidResetCode      = errors.New("invalid reset code")
	ErrResetTokenInvalid     = errors.New("invalid or expired reset token")
	ErrInvalidRole           = errors.New("invalid role")
	ErrStorageFailure        = errors.New("object storage failure")
)

// ObjectStore is the opaque "store bytes, get URL" contract fulfilled by the
// object-storage backend.
type ObjectStore interface {
	Store(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// CodeNotifier delivers activation and reset codes out of band.
type CodeNotifier interface {
	ActivationCode(ctx context.Context, name, email, code string) error
	ResetCode(ctx context.Context, name, email, userID, code string) error
}

// Service orchestrates the identity lifecycle. It is the only component
// with business rules; persistence, tickets, object storage and code
// delivery are injected collaborators.
type Service struct {
	Repo            repo.UserRepository
	Tickets         *ticket.Codec
	JWT             *helpers.JWTManager
	Objects         ObjectStore
	Notifier        CodeNotifier
	Redis           *redis.Client
	ES              *elasticsearch.Client
	ESUsersIndex    string
	Logger          *logrus.Logger
	AvatarKeyPrefix string

	// Now is overridable in tests.
	Now func() time.Time
}

type Credentials struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *entity.User `json:"user"`
}

// ActivationIssued is returned by Register on the normal (non-social) path;
// the pending user exists only inside the token until activation succeeds.
type ActivationIssued struct {
	Token          string `json:"token"`
	ActivationCode string `json:"activationCode"`
}

// RegisterResult carries exactly one of the two register outcomes.
type RegisterResult struct {
	Activation  *ActivationIssued
	Credentials *Credentials
}

// ResetIssued is returned by ForgotPassword for out-of-band delivery.
type ResetIssued struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ResetCode  string    `json:"resetCode"`
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func NewService(r repo.UserRepository, tickets *ticket.Codec, jwt *helpers.JWTManager, objects ObjectStore, notifier CodeNotifier, rdb *redis.Client, es *elasticsearch.Client, esUsersIndex string, logger *logrus.Logger, avatarKeyPrefix string) *Service {
	return &Service{
		Repo:            r,
		Tickets:         tickets,
		JWT:             jwt,
		Objects:         objects,
		Notifier:        notifier,
		Redis:           rdb,
		ES:              es,
		ESUsersIndex:    esUsersIndex,
		Logger:          logger,
		AvatarKeyPrefix: avatarKeyPrefix,
		Now:             time.Now,
	}
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Register drives the NonExistent -> PendingActivation -> Active state
// machine. The avatar-bearing variant is the social-auth path: a duplicate
// email there means "log the existing account in", not a conflict.
func (s *Service) Register(ctx context.Context, name, email, password, avatarURL string) (*RegisterResult, error) {
	existing, err := s.Repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if avatarURL == "" {
			return nil, ErrEmailTaken
		}
		creds, err := s.issueCredentials(ctx, existing)
		if err != nil {
			return nil, err
		}
		return &RegisterResult{Credentials: creds}, nil
	}

	if avatarURL == "" {
		hash, err := helpers.HashPassword(password)
		if err != nil {
			return nil, err
		}
		token, code, err := s.Tickets.IssueActivation(ticket.PendingUser{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         entity.RoleUser,
		})
		if err != nil {
			return nil, err
		}
		s.notifyActivation(ctx, name, email, code)
		return &RegisterResult{Activation: &ActivationIssued{Token: token, ActivationCode: code}}, nil
	}

	// Social path, first time: the account is created directly as active.
	u := &entity.User{
		Name:      name,
		Email:     email,
		AvatarURL: avatarURL,
		Role:      entity.RoleUser,
		Courses:   []string{},
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.indexUser(ctx, u)
	creds, err := s.issueCredentials(ctx, u)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Credentials: creds}, nil
}

// Activate verifies an activation token and code and persists the pending
// user. Email uniqueness is re-checked because a second registration may
// have won the race since the token was minted.
func (s *Service) Activate(ctx context.Context, token, code string) error {
	t, err := s.Tickets.VerifyActivation(token)
	if err != nil {
		return ErrActivationInvalid
	}
	if t.Code != code {
		return ErrInvalidActivationCode
	}
	if _, err := s.Repo.GetByEmail(ctx, t.User.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	u := &entity.User{
		Name:         t.User.Name,
		Email:        t.User.Email,
		PasswordHash: t.User.PasswordHash,
		AvatarURL:    t.User.AvatarURL,
		Role:         t.User.Role,
		Courses:      []string{},
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return ErrEmailTaken
		}
		return err
	}
	s.indexUser(ctx, u)
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.PasswordHash == "" || !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if u.IsBlocked {
		return nil, ErrAccountBlocked
	}
	return s.issueCredentials(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdateInfo(ctx context.Context, id, name string) error {
	if err := s.Repo.UpdateName(ctx, id, name); err != nil {
		return mapNotFound(err)
	}
	return nil
}

func (s *Service) UpdatePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return mapNotFound(s.Repo.UpdatePassword(ctx, id, hash))
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return mapNotFound(s.Repo.Delete(ctx, id))
}

func (s *Service) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	return s.Repo.ListByRole(ctx, role)
}

// UpdateAvatar normalizes the uploaded bytes, stores them under a fresh
// collision-resistant key and persists the returned URL. The user record is
// only touched after the upload succeeds.
func (s *Service) UpdateAvatar(ctx context.Context, id string, data []byte, mimeType string) error {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	normalized, err := avatar.Normalize(data, mimeType)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%s/%s%s", s.AvatarKeyPrefix, u.ID, uuid.NewString(), avatar.Ext(mimeType))
	url, err := s.Objects.Store(ctx, key, mimeType, bytes.NewReader(normalized))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := s.Repo.UpdateAvatar(ctx, id, url); err != nil {
		return mapNotFound(err)
	}
	u.AvatarURL = url
	s.indexUser(ctx, u)
	return nil
}

// ForgotPassword opens a reset flow: the three reset fields are persisted
// together with a fixed expiry window from issuance.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*ResetIssued, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	token, code, expires, err := s.Tickets.IssueReset(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetResetToken(ctx, u.ID, token, code, expires); err != nil {
		return nil, mapNotFound(err)
	}
	s.notifyReset(ctx, u.Name, u.Email, u.ID, code)
	return &ResetIssued{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		ResetCode:  code,
		ResetToken: token,
		ExpiresAt:  expires,
	}, nil
}

// VerifyResetCode checks the signed ticket and, independently, that the
// stored token still matches and has not expired. It does not clear the
// reset fields, so verifying twice is allowed.
func (s *Service) VerifyResetCode(ctx context.Context, token, code string) (string, error) {
	t, err := s.Tickets.VerifyReset(token)
	if err != nil {
		return "", ErrResetTokenInvalid
	}
	if t.Code != code {
		return "", ErrInvalidResetCode
	}
	u, err := s.Repo.GetByEmail(ctx, t.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if !u.HasOpenReset() || *u.ResetToken != token || s.Now().After(*u.ResetTokenExpires) {
		return "", ErrResetTokenInvalid
	}
	return u.ID, nil
}

// ResetPassword closes the reset cycle. The hash write and the field clear
// happen in one store operation; a reset against already-cleared fields
// fails instead of silently succeeding.
func (s *Service) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if _, err := s.Repo.GetByID(ctx, userID); err != nil {
		return mapNotFound(err)
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.CompleteReset(ctx, userID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	return nil
}

// UpdateRole rejects unknown roles before touching the store.
func (s *Service) UpdateRole(ctx context.Context, userID, newRole string) (*entity.User, error) {
	role, ok := entity.ParseRole(newRole)
	if !ok {
		return nil, ErrInvalidRole
	}
	u, err := s.Repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) UpdateCourseList(ctx context.Context, userID, courseID string) error {
	return mapNotFound(s.Repo.AppendCourse(ctx, userID, courseID))
}

// Verify, Block and Unblock are idempotent flag flips.
func (s *Service) Verify(ctx context.Context, userID string) error {
	return mapNotFound(s.Repo.SetVerified(ctx, userID, true))
}

func (s *Service) Block(ctx context.Context, userID string) error {
	return mapNotFound(s.Repo.SetBlocked(ctx, userID, true))
}

func (s *Service) Unblock(ctx context.Context, userID string) error {
	return mapNotFound(s.Repo.SetBlocked(ctx, userID, false))
}

// Analytics returns monthly signup buckets for the trailing twelve months.
func (s *Service) Analytics(ctx context.Context, instructorID string) ([]entity.MonthlyCount, error) {
	if strings.TrimSpace(instructorID) == "" {
		return nil, ErrUserNotFound
	}
	return s.Repo.MonthlySignups(ctx, entity.RoleUser, 12)
}

func (s *Service) issueCredentials(ctx context.Context, u *entity.User) (*Credentials, error) {
	access, _, err := s.JWT.GenerateAccessToken(u.ID, u.Role.String())
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return nil, err
	}
	refresh, _, err := s.JWT.GenerateRefreshToken(u.ID, u.Role.String())
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		}
		return nil, err
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"avatar_url": u.AvatarURL,
			"role":       u.Role.String(),
			"logged_in":  true,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return &Credentials{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

func (s *Service) notifyActivation(ctx context.Context, name, email, code string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.ActivationCode(ctx, name, email, code); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("activation code notification failed")
	}
}

func (s *Service) notifyReset(ctx context.Context, name, email, userID, code string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.ResetCode(ctx, name, email, userID, code); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("reset code notification failed")
	}
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":          u.ID,
		"email":       u.Email,
		"name":        u.Name,
		"avatar_url":  u.AvatarURL,
		"role":        u.Role.String(),
		"is_verified": u.IsVerified,
		"is_blocked":  u.IsBlocked,
		"created_at":  u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
