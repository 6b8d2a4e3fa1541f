package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"schoolboard/internal/auth"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"
	"schoolboard/internal/validation"

	"github.com/jinzhu/copier"
)

type AuthService struct {
	users    repository.UserRepository
	sessions auth.SessionStore
	tokens   *auth.TokenIssuer
}

type SignupInput struct {
	StudentID string `json:"studentId" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=50"`
	UserID    string `json:"userId" validate:"required,max=50"`
	Password  string `json:"password" validate:"required"`
}

type LoginInput struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the new session id and a bearer token for clients
// that do not keep cookies.
type LoginResult struct {
	User      models.SafeUser
	SessionID string
	Token     string
}

func NewAuthService(users repository.UserRepository, sessions auth.SessionStore, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens}
}

// Signup creates an account with a bcrypt credential and signs the new
// user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*LoginResult, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	in.UserID = strings.TrimSpace(in.UserID)
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError("모든 항목을 입력하세요: " + err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	cred, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		StudentID: in.StudentID,
		Name:      in.Name,
		UserID:    in.UserID,
		Password:  cred.Value,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErr(err)
	}

	return s.openSession(ctx, toSafeUser(user))
}

// Login verifies the password, upgrades a legacy plaintext credential in
// place and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError("아이디와 비밀번호를 입력하세요.")
	}

	user, err := s.users.GetByLoginID(ctx, in.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "존재하지 않는 아이디입니다."}
		}
		return nil, appErr(err)
	}

	cred := auth.ParseCredential(user.Password)
	if err := cred.Verify(in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, models.NewUnauthorizedError("비밀번호가 일치하지 않습니다.")
		}
		return nil, models.NewInternalError(err)
	}

	upgraded, ok, err := auth.Upgrade(cred, in.Password)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Password upgrade failed", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
	} else if ok {
		if err := s.users.UpdatePassword(ctx, user.ID, upgraded.Value); err != nil {
			middleware.Logger.WarnContext(ctx, "Password upgrade not saved", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		} else {
			middleware.Logger.InfoContext(ctx, "Legacy password upgraded", slog.Uint64("user_id", uint64(user.ID)))
		}
	}

	return s.openSession(ctx, toSafeUser(user))
}

func (s *AuthService) openSession(ctx context.Context, safe models.SafeUser) (*LoginResult, error) {
	sid, err := s.sessions.Create(ctx, safe)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	token, err := s.tokens.Issue(auth.PrincipalFromUser(safe))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{User: safe, SessionID: sid, Token: token}, nil
}

// CheckID reports 409 when the login id is taken.
func (s *AuthService) CheckID(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.NewValidationError("userId is required")
	}
	exists, err := s.users.LoginIDExists(ctx, userID)
	if err != nil {
		return appErr(err)
	}
	if exists {
		return models.NewConflictError("이미 사용 중인 아이디입니다.")
	}
	return nil
}

// Logout ends the session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		return models.NewInternalError(err)
	}
	return nil
}

// SessionPrincipal resolves a session cookie.
func (s *AuthService) SessionPrincipal(ctx context.Context, sessionID string) (auth.Principal, error) {
	user, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.PrincipalFromUser(*user), nil
}

// TokenPrincipal resolves a bearer token.
func (s *AuthService) TokenPrincipal(token string) (auth.Principal, error) {
	return s.tokens.Parse(token)
}

func toSafeUser(u *models.User) models.SafeUser {
	var safe models.SafeUser
	_ = copier.Copy(&safe, u)
	return safe
}
