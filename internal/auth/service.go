// Package auth はパスワード認証とセッションのライフサイクル管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/goalcoach/internal/model"
	"github.com/hitoshi/goalcoach/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge            int // セッション有効期間（秒）
	PasswordMinLength        int
	RequireEmailConfirmation bool
	SignInRatePerMinute      int // メールアドレスごとのサインイン試行上限
	SignInBurst              int
}

// SignUpResult はサインアップの結果を表す。
// メール確認が必要な場合、Sessionはnilとなり
// PendingConfirmationがtrueになる。
type SignUpResult struct {
	Identity            *model.Identity
	Session             *model.Session
	PendingConfirmation bool
}

// Service は認証に関するビジネスロジックを提供する。
// セッション確立・終了の遷移はNotifier経由で購読者へ通知される。
type Service struct {
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	notifier    *Notifier
	config      ServiceConfig

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter // メールアドレスごとのサインイン試行リミッター
}

// NewService はServiceを生成する。
func NewService(
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	notifier *Notifier,
	config ServiceConfig,
) *Service {
	return &Service{
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		notifier:    notifier,
		config:      config,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// SignUp は新規Identityを登録する。
// メール確認が必要な設定の場合、Identityは未確認状態で作成され
// セッションは発行されない。確認不要の場合は即座にセッションを発行する。
func (s *Service) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	email = normalizeEmail(email)

	if !validEmail(email) {
		return nil, model.NewInvalidEmailError()
	}
	if len(password) < s.config.PasswordMinLength {
		return nil, model.NewWeakPasswordError(s.config.PasswordMinLength)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	identity := &model.Identity{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.config.RequireEmailConfirmation {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate confirmation token: %w", err)
		}
		identity.ConfirmationToken = token
	} else {
		identity.EmailConfirmedAt = &now
	}

	if err := s.identRepo.Create(ctx, identity, passwordHash); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	slog.Info("identity registered",
		slog.String("identity_id", identity.ID),
		slog.Bool("pending_confirmation", s.config.RequireEmailConfirmation),
	)

	result := &SignUpResult{
		Identity:            identity,
		PendingConfirmation: s.config.RequireEmailConfirmation,
	}

	if !s.config.RequireEmailConfirmation {
		session, err := s.createSession(ctx, identity.ID)
		if err != nil {
			return nil, err
		}
		result.Session = session
		s.notifier.notify(Transition{
			Kind:       TransitionEstablished,
			IdentityID: identity.ID,
		})
	}

	return result, nil
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
// 未登録メールとパスワード不一致は同一のエラーで応答し、
// 登録有無を漏らさない。正しいパスワードでメール未確認の場合のみ
// EMAIL_NOT_CONFIRMEDで区別する（確認状態は取得済みの行から判定でき、
// 追加の照会を要しない）。
// 成功時はEstablished遷移をちょうど1回発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)

	if !s.signInLimiter(email).Allow() {
		slog.Warn("sign-in rate limit exceeded", slog.String("email", email))
		return nil, model.NewRateLimitedError()
	}

	identity, passwordHash, err := s.identRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if !verifyPassword(passwordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	if s.config.RequireEmailConfirmation && !identity.Confirmed() {
		return nil, model.NewEmailNotConfirmedError()
	}

	session, err := s.createSession(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user signed in", slog.String("identity_id", identity.ID))

	s.notifier.notify(Transition{
		Kind:       TransitionEstablished,
		IdentityID: identity.ID,
	})

	return session, nil
}

// SignOut はセッションを破棄する。
// 存在するセッションの削除時のみTerminated遷移を発行する。
// 既に存在しないセッションの削除はエラーにせず、遷移も発行しない。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if session != nil {
		slog.Info("user signed out", slog.String("identity_id", session.IdentityID))
		s.notifier.notify(Transition{
			Kind:       TransitionTerminated,
			IdentityID: session.IdentityID,
		})
	}

	return nil
}

// ConfirmEmail は確認トークンに一致するIdentityを確認済みにする。
// トークンが無効または使用済みの場合はINVALID_TOKENを返す。
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	identity, err := s.identRepo.ConfirmByToken(ctx, token, time.Now())
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	if identity == nil {
		return model.NewInvalidTokenError()
	}

	slog.Info("email confirmed", slog.String("identity_id", identity.ID))
	return nil
}

// Restore は永続化されたセッションIDから認証状態を復元する。
// 起動時の復元はStartup=trueのEstablished遷移として通知され、
// 購読側がライブなサインインと区別できる。
// セッションが無効または期限切れの場合は (nil, nil) を返し、遷移は発行しない。
func (s *Service) Restore(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	s.notifier.notify(Transition{
		Kind:       TransitionEstablished,
		IdentityID: session.IdentityID,
		Startup:    true,
	})

	return session, nil
}

// CurrentIdentity はセッションIDから現在のIdentityを解決する。
// セッションまたはIdentityが見つからない場合はnilを返す。
func (s *Service) CurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	identity, err := s.identRepo.FindByID(ctx, session.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	return identity, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, identityID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:         sessionID,
		IdentityID: identityID,
		ExpiresAt:  time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:  time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// signInLimiter はメールアドレスごとのサインイン試行リミッターを取得または作成する。
func (s *Service) signInLimiter(email string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	if l, ok := s.limiters[email]; ok {
		return l
	}

	l := rate.NewLimiter(rate.Limit(float64(s.config.SignInRatePerMinute)/60.0), s.config.SignInBurst)
	s.limiters[email] = l
	return l
}

// normalizeEmail はメールアドレスを正規化する（前後空白除去 + 小文字化）。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail はメールアドレスの形式を検証する。
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateToken はメール確認用トークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
