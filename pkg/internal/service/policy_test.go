package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/service"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	hash := service.HashSharePassword("s3cret")

	build := func(fn func(*model.FileRecord)) *model.FileRecord {
		r := &model.FileRecord{ID: "abcdefghij"}
		if fn != nil {
			fn(r)
		}

		return r
	}

	cases := []struct {
		name     string
		rec      *model.FileRecord
		password *string
		download bool
		outcome  service.Outcome
		reason   service.Reason
		err      error
	}{
		{name: "missing", rec: nil, outcome: service.Denied, reason: service.ReasonMissing, err: service.ErrNotFound},
		{
			name:    "expired",
			rec:     build(func(r *model.FileRecord) { r.ExpiresAt = &past }),
			outcome: service.Denied, reason: service.ReasonExpired, err: service.ErrExpired,
		},
		{
			name:    "not yet expired",
			rec:     build(func(r *model.FileRecord) { r.ExpiresAt = &future }),
			outcome: service.Allowed,
		},
		{
			name: "exhausted",
			rec: build(func(r *model.FileRecord) {
				r.MaxDownloads = intPtr(3)
				r.DownloadCount = 3
			}),
			outcome: service.Denied, reason: service.ReasonExhausted, err: service.ErrExhausted,
		},
		{
			name: "expired wins over exhausted",
			rec: build(func(r *model.FileRecord) {
				r.ExpiresAt = &past
				r.MaxDownloads = intPtr(1)
				r.DownloadCount = 1
			}),
			outcome: service.Denied, reason: service.ReasonExpired, err: service.ErrExpired,
		},
		{
			name:    "password metadata view",
			rec:     build(func(r *model.FileRecord) { r.PasswordHash = &hash }),
			outcome: service.Allowed,
		},
		{
			name:     "password missing on download",
			rec:      build(func(r *model.FileRecord) { r.PasswordHash = &hash }),
			download: true,
			outcome:  service.PasswordRequired, err: service.ErrPasswordRequired,
		},
		{
			name:     "wrong password",
			rec:      build(func(r *model.FileRecord) { r.PasswordHash = &hash }),
			password: strPtr("S3cret"),
			download: true,
			outcome:  service.Denied, reason: service.ReasonBadPassword, err: service.ErrBadPassword,
		},
		{
			name:     "right password",
			rec:      build(func(r *model.FileRecord) { r.PasswordHash = &hash }),
			password: strPtr("s3cret"),
			download: true,
			outcome:  service.Allowed,
		},
		{
			name: "exhausted before password",
			rec: build(func(r *model.FileRecord) {
				r.PasswordHash = &hash
				r.MaxDownloads = intPtr(1)
				r.DownloadCount = 1
			}),
			password: strPtr("wrong"),
			download: true,
			outcome:  service.Denied, reason: service.ReasonExhausted, err: service.ErrExhausted,
		},
		{name: "open", rec: build(nil), download: true, outcome: service.Allowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := service.Evaluate(tc.rec, now, tc.password, tc.download)

			if d.Outcome != tc.outcome || d.Reason != tc.reason {
				t.Fatalf("Evaluate = %v/%v, want %v/%v", d.Outcome, d.Reason, tc.outcome, tc.reason)
			}

			if err := d.Err(); !errors.Is(err, tc.err) || (tc.err == nil && err != nil) {
				t.Errorf("Err() = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestEvaluateReportsPasswordFlag(t *testing.T) {
	hash := service.HashSharePassword("x")
	rec := &model.FileRecord{ID: "abcdefghij", PasswordHash: &hash}

	d := service.Evaluate(rec, time.Now(), nil, false)
	if d.Outcome != service.Allowed || !d.HasPassword {
		t.Errorf("decision = %+v", d)
	}
}

func TestPasswordMatchesIsExact(t *testing.T) {
	stored := service.HashSharePassword("pass word")

	if !service.PasswordMatches(stored, "pass word") {
		t.Error("identical password rejected")
	}

	for _, p := range []string{"pass word ", "Pass word", "pass", ""} {
		if service.PasswordMatches(stored, p) {
			t.Errorf("%q accepted", p)
		}
	}
}
