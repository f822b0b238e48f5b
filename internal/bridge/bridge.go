// Package bridge mirrors in-memory diffs to a storage adapter.
//
// Every change becomes its own fire-and-forget call. Failures are logged and counted but
// never roll back memory and never block later submissions.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"daylist-cli/internal/logging"
	"daylist-cli/internal/model"
	"daylist-cli/internal/storage"
)

const (
	DefaultMaxInFlight = 8

	opEnsurePage = "page.ensure"

	resultOK    = "ok"
	resultError = "error"
)

type Options struct {
	MaxInFlight int
	// RatePerSec caps adapter calls per second; 0 means unlimited.
	RatePerSec float64
	Logger     *logging.Logger
	// Registry receives the bridge counters; a private registry is used when nil.
	Registry *prometheus.Registry
	Now      func() time.Time
}

type Bridge struct {
	adapter storage.Adapter
	log     *logging.Logger
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	reg     *prometheus.Registry
	ops     *prometheus.CounterVec
	now     func() time.Time

	wg sync.WaitGroup
}

func New(adapter storage.Adapter, opts Options) (*Bridge, error) {
	if adapter == nil {
		return nil, errors.New("bridge: nil adapter")
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daylist",
		Subsystem: "bridge",
		Name:      "ops_total",
		Help:      "Storage calls issued by the persistence bridge, by operation and result.",
	}, []string{"op", "result"})
	if err := opts.Registry.Register(ops); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("bridge: register metrics: %w", err)
		}
		ops = are.ExistingCollector.(*prometheus.CounterVec)
	}

	b := &Bridge{
		adapter: adapter,
		log:     opts.Logger.WithComponent("bridge"),
		sem:     semaphore.NewWeighted(int64(opts.MaxInFlight)),
		reg:     opts.Registry,
		ops:     ops,
		now:     opts.Now,
	}
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return b, nil
}

// Submit issues every change of d asynchronously and returns immediately.
func (b *Bridge) Submit(d model.Diff) {
	for _, c := range d.Changes {
		c := c
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			ctx := context.Background()
			if err := b.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer b.sem.Release(1)
			b.run(ctx, c)
		}()
	}
}

// Wait blocks until every submitted change has finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) run(ctx context.Context, c model.Change) {
	if c.Kind == model.ChangeCreateTodo {
		err := b.ensurePage(ctx, c.WorkspaceID, c.Date)
		b.record(opEnsurePage, c, err)
		if err != nil {
			return
		}
	}
	b.record(string(c.Kind), c, b.apply(ctx, c))
}

func (b *Bridge) record(op string, c model.Change, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	b.ops.WithLabelValues(op, result).Inc()
	b.log.LogStorageCall(op, c.WorkspaceID, c.Date, c.TodoID, err)
}

func (b *Bridge) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// ensurePage creates the page at the adapter when it is missing. A concurrent first write
// may win the race; the resulting duplicate is success.
func (b *Bridge) ensurePage(ctx context.Context, wsID, date string) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	_, err := b.adapter.GetPage(ctx, wsID, date)
	if err == nil {
		return nil
	}
	if !storage.IsNotFound(err) {
		return err
	}
	now := b.now()
	_, err = b.adapter.CreatePage(ctx, wsID, &model.Page{Date: date, CreatedAt: now, UpdatedAt: now})
	if errors.Is(err, storage.ErrDuplicate) {
		return nil
	}
	return err
}

func (b *Bridge) apply(ctx context.Context, c model.Change) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	switch c.Kind {
	case model.ChangeCreateWorkspace:
		if c.Workspace == nil {
			return errors.New("missing workspace payload")
		}
		_, err := b.adapter.CreateWorkspace(ctx, c.Workspace)
		return err
	case model.ChangeUpdateWorkspace:
		if c.WorkspacePatch == nil {
			return errors.New("missing workspace patch")
		}
		_, err := b.adapter.UpdateWorkspace(ctx, c.WorkspaceID, *c.WorkspacePatch)
		return err
	case model.ChangeDeleteWorkspace:
		return b.adapter.DeleteWorkspace(ctx, c.WorkspaceID)
	case model.ChangeCreatePage:
		if c.Page == nil {
			return errors.New("missing page payload")
		}
		_, err := b.adapter.CreatePage(ctx, c.WorkspaceID, c.Page)
		if errors.Is(err, storage.ErrDuplicate) {
			return nil
		}
		return err
	case model.ChangeUpdatePage:
		if c.PagePatch == nil {
			return errors.New("missing page patch")
		}
		_, err := b.adapter.UpdatePage(ctx, c.WorkspaceID, c.Date, *c.PagePatch)
		return err
	case model.ChangeCreateTodo:
		if c.Todo == nil {
			return errors.New("missing todo payload")
		}
		_, err := b.adapter.CreateTodo(ctx, c.WorkspaceID, c.Date, c.Todo)
		return err
	case model.ChangeUpdateTodo:
		if c.TodoPatch == nil {
			return errors.New("missing todo patch")
		}
		_, err := b.adapter.UpdateTodo(ctx, c.TodoID, *c.TodoPatch)
		return err
	case model.ChangeDeleteTodo:
		return b.adapter.DeleteTodo(ctx, c.TodoID)
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
}
