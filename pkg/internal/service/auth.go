package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
)

const sessionIDBytes = 32

// LoginInput 一次登录尝试. IP 与 UserAgent 写入登录日志.
type LoginInput struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// AuthOptions AuthService 的依赖.
type AuthOptions struct {
	Users      *db.UserStore
	Sessions   *db.SessionStore
	Logins     *db.LoginLogStore
	KV         kv.Store
	Events     *Emitter
	Clock      Clock
	Session    configs.SessionConfig
	LogLimit   int
	BcryptCost int
}

// AuthService 登录、会话与登录日志.
type AuthService struct {
	users    *db.UserStore
	sessions *db.SessionStore
	logins   *db.LoginLogStore
	kv       kv.Store
	events   *Emitter
	now      Clock
	cfg      configs.SessionConfig
	logLimit int
	cost     int
}

// NewAuthService 创建认证服务.
func NewAuthService(o AuthOptions) *AuthService {
	if o.Clock == nil {
		o.Clock = utcNow
	}

	if o.Session.TTL <= 0 {
		o.Session.TTL = configs.DefaultSessionTTL
	}

	if o.LogLimit <= 0 {
		o.LogLimit = configs.DefaultLoginLogLimit
	}

	return &AuthService{
		users:    o.Users,
		sessions: o.Sessions,
		logins:   o.Logins,
		kv:       o.KV,
		events:   o.Events,
		now:      o.Clock,
		cfg:      o.Session,
		logLimit: o.LogLimit,
		cost:     bcryptCost(o.BcryptCost),
	}
}

func bcryptCost(c int) int {
	if c < bcrypt.MinCost || c > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}

	return c
}

// HashPassword 账户口令的 bcrypt 摘要.
func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost(cost))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(b), nil
}

// CheckPassword 比较口令与 bcrypt 摘要.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SessionTTL 会话滑动窗口.
func (s *AuthService) SessionTTL() time.Duration { return s.cfg.TTL }

// CookieName 会话 cookie 名称.
func (s *AuthService) CookieName() string { return s.cfg.CookieName }

// SecureCookie 是否只通过 HTTPS 发送 cookie.
func (s *AuthService) SecureCookie() bool { return s.cfg.Secure }

// Login 校验凭据并创建会话. 每次尝试都写入登录日志；
// 同一来源地址在窗口内失败次数达到上限后直接拒绝，不再校验口令.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*model.User, *model.Session, error) {
	if in.Username == "" || in.Password == "" {
		return nil, nil, fmt.Errorf("%w: credentials required", ErrValidation)
	}

	if s.throttled(ctx, in.IP) {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()

		return nil, nil, ErrThrottled
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	switch {
	case user == nil:
		s.fail(ctx, in, nil, "unknown user")

		return nil, nil, ErrBadPassword
	case !CheckPassword(user.PasswordHash, in.Password):
		s.fail(ctx, in, &user.ID, "bad password")

		return nil, nil, ErrBadPassword
	case !user.IsActive:
		s.fail(ctx, in, &user.ID, "inactive")

		return nil, nil, ErrInactive
	}

	s.appendLog(ctx, in, &user.ID, true)
	s.clearFailures(ctx, in.IP)
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	sess, err := s.StartSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, sess, nil
}

// StartSession 为 userID 创建新的会话.
func (s *AuthService) StartSession(ctx context.Context, userID uint) (*model.Session, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now()
	sess := &model.Session{
		ID:        hex.EncodeToString(buf),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return sess, nil
}

// ValidateSession 解析会话并向后滑动过期时间. 会话过期、用户不存在或已停用时删除会话.
func (s *AuthService) ValidateSession(ctx context.Context, id string) (*Identity, error) {
	if id == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if sess == nil {
		return nil, ErrUnauthenticated
	}

	now := s.now()
	if !now.Before(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, id)

		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil || !user.IsActive {
		_ = s.sessions.Delete(ctx, id)

		return nil, ErrUnauthenticated
	}

	if err := s.sessions.Touch(ctx, id, now.Add(s.cfg.TTL)); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return &Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// Logout 删除会话，会话不存在时不报错.
func (s *AuthService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	return s.sessions.Delete(ctx, id)
}

// CleanupSessions 删除已过期的会话.
func (s *AuthService) CleanupSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return n, nil
}

// RecentLogins 最近的登录日志，新记录在前.
func (s *AuthService) RecentLogins(ctx context.Context) ([]model.LoginLog, error) {
	return s.logins.Recent(ctx, s.logLimit)
}

// Me 返回会话用户的最新资料.
func (s *AuthService) Me(ctx context.Context, who Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return nil, ErrNotFound
	}

	return user, nil
}

func (s *AuthService) fail(ctx context.Context, in LoginInput, userID *uint, reason string) {
	s.appendLog(ctx, in, userID, false)
	s.recordFailure(ctx, in.IP)
	metrics.LoginAttempts.WithLabelValues("failure").Inc()
	s.events.LoginFailed(in.Username, in.IP, reason)

	nlog.Logger().Info().Str("username", in.Username).Str("ip", in.IP).Str("reason", reason).Msg("login failed")
}

func (s *AuthService) appendLog(ctx context.Context, in LoginInput, userID *uint, ok bool) {
	entry := &model.LoginLog{
		UserID:    userID,
		Username:  in.Username,
		IPAddress: in.IP,
		UserAgent: in.UserAgent,
		Success:   ok,
		CreatedAt: s.now(),
	}

	if err := s.logins.Append(ctx, entry); err != nil {
		nlog.Logger().Error().Err(err).Msg("append login log failed")
	}
}

// 失败计数与锁定标记分开存放.
func failKey(ip string) string { return "login:fail:" + ip }
func lockKey(ip string) string { return "login:lock:" + ip }

func (s *AuthService) throttleEnabled() bool {
	return s.kv != nil && s.cfg.MaxFailures > 0
}

func (s *AuthService) throttled(ctx context.Context, ip string) bool {
	if !s.throttleEnabled() {
		return false
	}

	locked, err := s.kv.Exists(ctx, lockKey(ip))
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("check login throttle failed")

		return false
	}

	return locked
}

func (s *AuthService) recordFailure(ctx context.Context, ip string) {
	if !s.throttleEnabled() {
		return
	}

	n, err := s.kv.Incr(ctx, failKey(ip), s.cfg.FailureWindow)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("count login failure failed")

		return
	}

	if n >= int64(s.cfg.MaxFailures) {
		if err := s.kv.Set(ctx, lockKey(ip), []byte("1"), s.cfg.FailureWindow); err != nil {
			nlog.Logger().Warn().Err(err).Msg("lock login source failed")
		}
	}
}

func (s *AuthService) clearFailures(ctx context.Context, ip string) {
	if !s.throttleEnabled() {
		return
	}

	if err := s.kv.Delete(ctx, failKey(ip)); err != nil && !errors.Is(err, kv.ErrNotFound) {
		nlog.Logger().Warn().Err(err).Msg("reset login failures failed")
	}
}
