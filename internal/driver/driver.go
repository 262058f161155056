package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mdiboard/internal/common"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Guilds processed at the same time within a tick
const maxConcurrentGuilds = 4

var ErrUnknownJob = errors.New("unknown job")
var ErrStopped = errors.New("driver stopped")

// Job refreshes one kind of board in every guild that has it
type Job struct {
	Name     string
	Interval time.Duration
	Guilds   func(ctx context.Context) ([]string, error)
	Run      func(ctx context.Context, guild string) error
}

type job struct {
	Job
	executor *common.TimedExecutor
}

type Driver struct {
	jobs   map[string]*job
	order  []string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

func New(jobs ...Job) *Driver {
	ctx, cancel := context.WithCancel(context.Background())
	driver := &Driver{jobs: map[string]*job{}, ctx: ctx, cancel: cancel}
	for _, j := range jobs {
		current := &job{Job: j}
		// Manual triggers right after a run are skipped
		current.executor = common.NewTimedExecutor(j.Interval/2, current.tick)
		driver.jobs[j.Name] = current
		driver.order = append(driver.order, j.Name)
	}
	return driver
}

// Start runs every job once and then on its interval
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for _, name := range d.order {
		j := d.jobs[name]
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.loop(j)
		}()
	}
}

func (d *Driver) loop(j *job) {
	log.Info().Str("job", j.Name).Dur("interval", j.Interval).Msg("Starting job")
	j.executor.Execute(d.ctx)

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.ctx.Done():
			log.Info().Str("job", j.Name).Msg("Job stopped")
			return
		case <-ticker.C:
			if !j.executor.Execute(d.ctx) {
				log.Debug().Str("job", j.Name).Msg("Skipping tick, previous run still in progress")
			}
		}
	}
}

// Trigger runs the job now unless it is running or ran very recently.
// Reports whether it ran
func (d *Driver) Trigger(name string) (bool, error) {
	j, ok := d.jobs[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false, ErrStopped
	}
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	return j.executor.Execute(d.ctx), nil
}

// Jobs returns the job names in registration order
func (d *Driver) Jobs() []string {
	return append([]string(nil), d.order...)
}

// Stop cancels every job and waits for the runs in progress
func (d *Driver) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// tick refreshes every guild of the job. A failing guild never stops
// the rest
func (j *job) tick(ctx context.Context) {
	stopwatch := time.Now()
	guilds, err := j.Guilds(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", j.Name).Msg("Could not list guilds")
		return
	}

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(maxConcurrentGuilds)
	for _, guild := range guilds {
		guild := guild
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					log.Error().Str("job", j.Name).Str("guild", guild).Interface("panic", r).Msg("Job panicked")
				}
			}()
			if err := j.Run(ctx, guild); err != nil {
				failed.Add(1)
				log.Error().Err(err).Str("job", j.Name).Str("guild", guild).Msg("Job failed for guild")
			}
			return nil
		})
	}
	g.Wait()

	log.Debug().Str("job", j.Name).Int("guilds", len(guilds)).Int32("failed", failed.Load()).Dur("took", time.Since(stopwatch)).Msg("Tick done")
}
