// Package schedule runs recurring background tasks.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Func is the body of a task. Errors are logged and never stop the runner.
type Func func(ctx context.Context) error

type task struct {
	name   string
	fn     Func
	next   func(now time.Time) time.Time
	notify chan struct{}
	atRun  bool
}

// Runner runs each registered task on its own goroutine.
type Runner struct {
	mu    sync.Mutex
	tasks map[string]*task
	order []string
	now   func() time.Time
}

func NewRunner() *Runner {
	return &Runner{tasks: make(map[string]*task), now: time.Now}
}

// Every runs fn at a fixed interval. With immediate set, it also runs once
// as soon as Run starts.
func (r *Runner) Every(name string, interval time.Duration, immediate bool, fn Func) {
	r.add(&task{
		name:  name,
		fn:    fn,
		next:  func(now time.Time) time.Time { return now.Add(interval) },
		atRun: immediate,
	})
}

// Daily runs fn once a day at hour:00 in loc.
func (r *Runner) Daily(name string, hour int, loc *time.Location, fn Func) {
	r.add(&task{
		name: name,
		fn:   fn,
		next: func(now time.Time) time.Time { return NextDaily(now, hour, loc) },
	})
}

func (r *Runner) add(t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.notify = make(chan struct{}, 1)
	if _, ok := r.tasks[t.name]; !ok {
		r.order = append(r.order, t.name)
	}
	r.tasks[t.name] = t
}

// Notify asks the named task to run now. Non-blocking; unknown names are
// ignored.
func (r *Runner) Notify(name string) {
	r.mu.Lock()
	t, ok := r.tasks[name]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Run starts every task and blocks until ctx is cancelled and all running
// tasks have returned.
func (r *Runner) Run(ctx context.Context) {
	r.mu.Lock()
	tasks := make([]*task, 0, len(r.order))
	for _, name := range r.order {
		tasks = append(tasks, r.tasks[name])
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, t)
		}()
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, t *task) {
	if t.atRun {
		r.exec(ctx, t)
	}

	for {
		next := t.next(r.now())
		timer := time.NewTimer(time.Until(next))
		slog.Debug("task scheduled", "task", t.name, "next", next)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.notify:
			timer.Stop()
		case <-timer.C:
		}

		r.exec(ctx, t)
	}
}

func (r *Runner) exec(ctx context.Context, t *task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := t.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return // shutting down
		}
		slog.Error("task failed", "task", t.name, "error", err, "duration", time.Since(start))
		return
	}
	slog.Debug("task completed", "task", t.name, "duration", time.Since(start))
}

// NextDaily returns the first hour:00 in loc strictly after now.
func NextDaily(now time.Time, hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}
