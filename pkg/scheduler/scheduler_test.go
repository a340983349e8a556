package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/filedrop/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatal(err)
	}

	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("condition not met before deadline")
}

func TestAddCronRejectsDuplicates(t *testing.T) {
	s := newScheduler(t)
	noop := func(context.Context) error { return nil }

	if err := s.AddCron("sweep", "*/10 * * * *", noop); err != nil {
		t.Fatal(err)
	}

	if err := s.AddCron("sweep", "*/5 * * * *", noop); err == nil {
		t.Error("duplicate name should fail")
	}

	if err := s.AddCron("bad", "not a cron", noop); err == nil {
		t.Error("invalid cron should fail")
	}

	infos := s.GetJobInfos()
	if len(infos) != 1 || infos[0].Name != "sweep" || infos[0].NextRun.IsZero() {
		t.Errorf("infos = %+v", infos)
	}
}

// TestRunNowRecordsSuccessAndError RunNow 后任务状态反映执行结果.
func TestRunNowRecordsSuccessAndError(t *testing.T) {
	s := newScheduler(t)

	var runs atomic.Int32

	_ = s.AddCron("ok", "0 0 1 1 *", func(context.Context) error {
		runs.Add(1)

		return nil
	})
	_ = s.AddCron("fail", "0 0 1 1 *", func(context.Context) error {
		return errors.New("disk gone")
	})

	if err := s.RunNow("ok"); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow("fail"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		info, _ := s.GetJobInfoByName("ok")

		return runs.Load() == 1 && !info.LastSuccess.IsZero()
	})

	waitFor(t, func() bool {
		info, _ := s.GetJobInfoByName("fail")

		return info.Status == scheduler.StatusError && info.Error == "disk gone"
	})

	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow on unknown job should fail")
	}
}

func TestRemoveJobByName(t *testing.T) {
	s := newScheduler(t)

	_ = s.AddCron("cleanup", "17 * * * *", func(context.Context) error { return nil })

	if err := s.RemoveJobByName("cleanup"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetJobInfoByName("cleanup"); err == nil {
		t.Error("job info should be gone")
	}
}

// TestTimeoutCancelsJob 超时后任务的 ctx 被取消，计入失败次数.
func TestTimeoutCancelsJob(t *testing.T) {
	s := newScheduler(t)

	err := s.AddCron("slow", "0 0 1 1 *", func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	}, scheduler.WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow("slow"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		info, _ := s.GetJobInfoByName("slow")

		return info.Runs == 1 && info.Failures == 1
	})

	info, _ := s.GetJobInfoByName("slow")
	if info.Status != scheduler.StatusError || info.Timeout != 50*time.Millisecond {
		t.Errorf("info = %+v", info)
	}
}

// TestPanicIsRecorded panic 不会终止调度器.
func TestPanicIsRecorded(t *testing.T) {
	s := newScheduler(t)

	_ = s.AddCron("boom", "0 0 1 1 *", func(context.Context) error { panic("bad state") })

	if err := s.RunNow("boom"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		info, _ := s.GetJobInfoByName("boom")

		return info.Failures == 1 && info.Status == scheduler.StatusError
	})
}
