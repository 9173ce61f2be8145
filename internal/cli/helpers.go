package cli

import (
	"context"
	"fmt"

	"github.com/spacelift-io/flows-app-aws-resources/internal/config"
	"github.com/spacelift-io/flows-app-aws-resources/internal/engine"
	"github.com/spacelift-io/flows-app-aws-resources/internal/logging"
	"github.com/spacelift-io/flows-app-aws-resources/internal/scheduler"
	"github.com/spacelift-io/flows-app-aws-resources/internal/schema"
	"github.com/spacelift-io/flows-app-aws-resources/internal/store"
	"github.com/spacelift-io/flows-app-aws-resources/internal/telemetry"
	"github.com/spacelift-io/flows-app-aws-resources/providers/aws"
)

// schemaCacheBucket holds resolved type schemas between runs.
const schemaCacheBucket = "schema-cache"

// loadConfig reads the configuration file and initializes logging
// from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// app bundles the wired components a command needs.
type app struct {
	cfg     *config.Config
	store   store.Store
	sched   *scheduler.Scheduler
	metrics *telemetry.Metrics
}

// buildApp wires store, Cloud Control client, schema resolver, engine
// and scheduler together from the configuration.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	client, err := aws.New(ctx, aws.Options{
		Region:       cfg.Remote.Region,
		Profile:      cfg.Remote.Profile,
		RateLimitRPS: cfg.Remote.RateLimitRPS,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building Cloud Control client: %w", err)
	}

	resolver := schema.NewResolver(client, schema.NewBucketCache(st.Bucket(schemaCacheBucket)))
	eng := engine.New(client, resolver)
	eng.PollInterval = cfg.Reconciler.PollInterval.Duration

	metrics := telemetry.New()

	return &app{
		cfg:     cfg,
		store:   st,
		sched:   scheduler.New(eng, st, nil, metrics),
		metrics: metrics,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Printf("Warning: closing state store: %v\n", err)
	}
}

// selectResources resolves command arguments to declared resources.
// Without arguments every declared resource is selected.
func selectResources(cfg *config.Config, args []string) ([]config.ResourceConfig, error) {
	if len(args) == 0 {
		return cfg.Resources, nil
	}

	selected := make([]config.ResourceConfig, 0, len(args))
	for _, name := range args {
		rc, ok := cfg.Resource(name)
		if !ok {
			return nil, fmt.Errorf("resource %q is not declared in %s", name, cfgFile)
		}
		selected = append(selected, rc)
	}
	return selected, nil
}
