package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/service"
)

func TestPurgeRejectsWrongToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seed(t, "keepme0001", "x")

	for _, token := range []string{"", "wrong-token", "supprimer-tout", "SUPPRIMER-TOUT ", "SUPPRIMER"} {
		if _, err := e.svc.Purger.PurgeAll(ctx, token); !errors.Is(err, service.ErrValidation) {
			t.Errorf("PurgeAll(%q) err = %v", token, err)
		}
	}

	if n, _ := e.records.Count(ctx); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

// TestPurgeAll 缺失的工件不计为错误.
func TestPurgeAll(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	var keys []string

	for i := range 5 {
		rec := e.seed(t, fmt.Sprintf("purgeme%03d", i), "content")
		keys = append(keys, rec.StorageKey)
	}

	if err := e.artifacts.Delete(ctx, keys[2]); err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.Purger.PurgeAll(ctx, "SUPPRIMER-TOUT")
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 5 || res.Errors != 0 {
		t.Errorf("result = %+v, want 5/0", res)
	}

	if n, _ := e.records.Count(ctx); n != 0 {
		t.Errorf("records left = %d", n)
	}

	for _, k := range keys {
		if e.exists(t, k) {
			t.Errorf("artifact %s left", k)
		}
	}
}

// TestPurgeRetryCleansLeftovers 失败的条目保留，下一次清空可以继续处理.
func TestPurgeRetryCleansLeftovers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	stuck := e.seed(t, "stuckfile1", "a")
	e.seed(t, "okfile0001", "b")
	e.artifacts.failDelete(stuck.StorageKey, true)

	res, err := e.svc.Purger.PurgeAll(ctx, "SUPPRIMER-TOUT")
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 1 || res.Errors != 1 {
		t.Fatalf("first purge = %+v", res)
	}

	if e.record(t, stuck.ID) == nil {
		t.Fatal("failed item should remain for retry")
	}

	e.artifacts.failDelete(stuck.StorageKey, false)

	res, err = e.svc.Purger.PurgeAll(ctx, "SUPPRIMER-TOUT")
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 1 || res.Errors != 0 {
		t.Errorf("second purge = %+v", res)
	}
}

func TestPurgeTokenIsConfigurable(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, withConfig(func(c *configs.AppConfig) { c.Drop.PurgeToken = "DELETE-ALL" }))
	e.seed(t, "purgeme000", "x")

	if _, err := e.svc.Purger.PurgeAll(ctx, "SUPPRIMER-TOUT"); !errors.Is(err, service.ErrValidation) {
		t.Errorf("default token accepted: %v", err)
	}

	res, err := e.svc.Purger.PurgeAll(ctx, "DELETE-ALL")
	if err != nil || res.Deleted != 1 {
		t.Errorf("PurgeAll = %+v, %v", res, err)
	}
}
