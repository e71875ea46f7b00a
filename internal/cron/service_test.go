package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/multierr"

	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	first := &testJob{name: "first", err: errors.New("boom")}
	second := &testJob{name: "second"}
	third := &testJob{name: "third", err: errors.New("bang")}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.runCycle(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 job errors, got %d: %v", got, err)
	}
	for _, job := range []*testJob{first, second, third} {
		if job.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", job.name, job.runs)
		}
	}

	expected := `
# HELP letrinh_cron_job_runs_total Cron job executions by outcome.
# TYPE letrinh_cron_job_runs_total counter
letrinh_cron_job_runs_total{job="first",outcome="failure"} 1
letrinh_cron_job_runs_total{job="second",outcome="success"} 1
letrinh_cron_job_runs_total{job="third",outcome="failure"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "letrinh_cron_job_runs_total"); err != nil {
		t.Fatalf("unexpected run series: %v", err)
	}
}

type deadlineJob struct {
	hadDeadline bool
}

func (d *deadlineJob) Name() string { return "deadline" }

func (d *deadlineJob) Run(ctx context.Context) error {
	_, d.hadDeadline = ctx.Deadline()
	return nil
}

func TestServiceAppliesJobTimeout(t *testing.T) {
	job := &deadlineJob{}
	service, err := NewService(ServiceParams{
		Logger:     testLogger(),
		Registry:   NewRegistry(job),
		Lock:       &fakeLock{},
		JobTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !job.hadDeadline {
		t.Fatal("expected job context to carry a deadline")
	}
}

func TestServiceStopsCycleOnCanceledContext(t *testing.T) {
	first := &testJob{name: "first"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if first.runs != 0 {
		t.Fatalf("expected no job runs after cancel, got %d", first.runs)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "only"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestRegistrySkipsNilAndDuplicateNames(t *testing.T) {
	a := &testJob{name: "a"}
	registry := NewRegistry(a, nil)
	registry.Register(&testJob{name: "a"})
	registry.Register(&testJob{name: "b"})

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != a || jobs[1].Name() != "b" {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}
