// Package scheduler drives engine steps to completion: it loads instance
// records, invokes the engine, persists what comes back, honors requeue
// delays and hands change events to the emitter. One scheduler serves many
// instances; steps for the same instance are serialized, instances never
// wait on each other.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spacelift-io/flows-app-aws-resources/internal/engine"
	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
	"github.com/spacelift-io/flows-app-aws-resources/internal/store"
	"github.com/spacelift-io/flows-app-aws-resources/internal/telemetry"
)

// defaultStepRetries bounds consecutive step errors before a run gives up.
const defaultStepRetries = 3

// Emitter delivers change events to subscribers.
type Emitter interface {
	Emit(ctx context.Context, slot string, event resource.Event)
}

// LogEmitter writes events to the structured log. It is the default when no
// other subscriber is wired up.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, slot string, event resource.Event) {
	log.Info().
		Str("instance", slot).
		Str("identifier", event.Identifier).
		Bool("drifted", event.Drifted).
		Interface("state", event.State).
		Msg("Resource state changed")
}

// Scheduler runs engine steps for named instance slots.
type Scheduler struct {
	engine  *engine.Engine
	store   store.Store
	emitter Emitter
	metrics *telemetry.Metrics

	// StepRetries bounds consecutive step errors before a run returns the
	// error to its caller.
	StepRetries int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Scheduler. A nil emitter falls back to LogEmitter; a nil
// metrics set records nothing.
func New(eng *engine.Engine, st store.Store, emitter Emitter, metrics *telemetry.Metrics) *Scheduler {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &Scheduler{
		engine:      eng,
		store:       st,
		emitter:     emitter,
		metrics:     metrics,
		StepRetries: defaultStepRetries,
		locks:       make(map[string]*sync.Mutex),
	}
}

// RunSync drives the slot's instance until it settles in ready,
// drifted-reported or failed. The caller supplies the declared instance
// (type, region, desired config); persisted engine-owned fields are loaded
// before the first step and saved after every step.
func (s *Scheduler) RunSync(ctx context.Context, slot string, inst resource.Instance) (resource.Instance, engine.Result, error) {
	return s.run(ctx, slot, inst, "sync", s.engine.Sync)
}

// RunDrain tears the slot's instance down. Once it reaches drained the
// persisted record is discarded.
func (s *Scheduler) RunDrain(ctx context.Context, slot string, inst resource.Instance) (resource.Instance, engine.Result, error) {
	inst, result, err := s.run(ctx, slot, inst, "drain", s.engine.Drain)
	if err == nil && result.Status == resource.StatusDrained {
		if derr := store.DiscardInstance(ctx, s.store.Bucket(slot)); derr != nil {
			log.Warn().Err(derr).Str("instance", slot).Msg("Failed to discard drained record")
		}
	}
	return inst, result, err
}

// Load returns the slot's instance with persisted fields applied, without
// touching the remote.
func (s *Scheduler) Load(ctx context.Context, slot string, inst resource.Instance) (resource.Instance, error) {
	err := store.LoadInstance(ctx, s.store.Bucket(slot), &inst)
	return inst, err
}

type stepFunc func(context.Context, resource.Instance) (resource.Instance, engine.Result, error)

func (s *Scheduler) run(ctx context.Context, slot string, inst resource.Instance, operation string, step stepFunc) (resource.Instance, engine.Result, error) {
	unlock := s.lockSlot(slot)
	defer unlock()

	bucket := s.store.Bucket(slot)
	if err := store.LoadInstance(ctx, bucket, &inst); err != nil {
		return inst, engine.Result{}, err
	}

	var result engine.Result
	consecutiveErrs := 0
	for {
		if err := ctx.Err(); err != nil {
			return inst, result, err
		}

		started := time.Now()
		next, res, err := step(ctx, inst)
		if err != nil {
			// The step had no durable effect; retry from the same
			// snapshot after the usual delay.
			s.metrics.ObserveStep(operation, "error", time.Since(started))
			consecutiveErrs++
			if consecutiveErrs >= s.StepRetries {
				return inst, result, err
			}
			log.Warn().Err(err).Str("instance", slot).Msg("Step failed, retrying")
			if serr := sleep(ctx, s.engine.PollInterval); serr != nil {
				return inst, result, serr
			}
			continue
		}
		consecutiveErrs = 0
		inst, result = next, res
		s.metrics.ObserveStep(operation, string(res.Status), time.Since(started))

		if err := store.SaveInstance(ctx, bucket, inst); err != nil {
			return inst, result, err
		}
		if res.Event != nil {
			s.emitter.Emit(ctx, slot, *res.Event)
			s.metrics.ObserveEvent(res.Event.Drifted)
		}
		log.Debug().
			Str("instance", slot).
			Str("status", string(res.Status)).
			Str("detail", res.Description).
			Msg("Step complete")

		if res.RequeueAfter <= 0 {
			return inst, result, nil
		}
		if err := sleep(ctx, res.RequeueAfter); err != nil {
			return inst, result, err
		}
	}
}

func (s *Scheduler) lockSlot(slot string) func() {
	s.mu.Lock()
	l, ok := s.locks[slot]
	if !ok {
		l = &sync.Mutex{}
		s.locks[slot] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
