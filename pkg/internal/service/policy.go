package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/yeisme/filedrop/pkg/internal/model"
)

// Outcome 访问判定结果.
type Outcome int

const (
	Allowed Outcome = iota
	PasswordRequired
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case PasswordRequired:
		return "password_required"
	default:
		return "denied"
	}
}

// Reason Denied 的原因.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissing
	ReasonExpired
	ReasonExhausted
	ReasonBadPassword
)

func (r Reason) String() string {
	switch r {
	case ReasonMissing:
		return "missing"
	case ReasonExpired:
		return "expired"
	case ReasonExhausted:
		return "exhausted"
	case ReasonBadPassword:
		return "bad_password"
	default:
		return ""
	}
}

// AccessDecision 对一次分享访问的判定.
type AccessDecision struct {
	Outcome     Outcome
	Reason      Reason
	HasPassword bool
}

// Err 把判定转换为对应的业务错误，Allowed 返回 nil.
func (d AccessDecision) Err() error {
	switch {
	case d.Outcome == Allowed:
		return nil
	case d.Outcome == PasswordRequired:
		return ErrPasswordRequired
	}

	switch d.Reason {
	case ReasonExpired:
		return ErrExpired
	case ReasonExhausted:
		return ErrExhausted
	case ReasonBadPassword:
		return ErrBadPassword
	default:
		return ErrNotFound
	}
}

// Evaluate 按固定顺序判定访问：不存在、过期、次数耗尽、口令. 纯函数，不产生副作用；
// 过期记录的删除由调用方负责，次数耗尽的记录保留.
//
// download=false 表示只看元数据，此时口令不参与判定.
func Evaluate(rec *model.FileRecord, now time.Time, password *string, download bool) AccessDecision {
	if rec == nil {
		return AccessDecision{Outcome: Denied, Reason: ReasonMissing}
	}

	hasPassword := rec.HasPassword()

	if rec.Expired(now) {
		return AccessDecision{Outcome: Denied, Reason: ReasonExpired, HasPassword: hasPassword}
	}

	if rec.Exhausted() {
		return AccessDecision{Outcome: Denied, Reason: ReasonExhausted, HasPassword: hasPassword}
	}

	if !hasPassword || !download {
		return AccessDecision{Outcome: Allowed, HasPassword: hasPassword}
	}

	if password == nil || *password == "" {
		return AccessDecision{Outcome: PasswordRequired, HasPassword: true}
	}

	if !PasswordMatches(*rec.PasswordHash, *password) {
		return AccessDecision{Outcome: Denied, Reason: ReasonBadPassword, HasPassword: true}
	}

	return AccessDecision{Outcome: Allowed, HasPassword: true}
}

// HashSharePassword 分享口令的存储形式：base64url(SHA-256).
func HashSharePassword(password string) string {
	sum := sha256.Sum256([]byte(password))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// PasswordMatches 以常量时间比较摘要，要求口令逐字节相同.
func PasswordMatches(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(HashSharePassword(supplied))) == 1
}
