package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/session"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/locvowork/wage_calculator/pkg/dataflow"
)

// DemoSessionPrefix marks sessions created by the seeder.
const DemoSessionPrefix = "demo-"

const (
	seedWorkers    = 4
	seedRetries    = 2
	seedRetryDelay = 50 * time.Millisecond
)

type DataSeeder struct {
	sessions domain.SessionRepository
	engine   *wage.Engine
	rnd      *rand.Rand
}

// demoSession is one encoded session on its way to the store.
type demoSession struct {
	id     string
	values map[string]string
}

func NewDataSeeder(sessions domain.SessionRepository, engine *wage.Engine) *DataSeeder {
	return &DataSeeder{
		sessions: sessions,
		engine:   engine,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed makes the generated sessions reproducible.
func (ds *DataSeeder) WithSeed(seed int64) *DataSeeder {
	ds.rnd = rand.New(rand.NewSource(seed))
	return ds
}

// SeedSessions writes count demo sessions, each a valid calculation input.
// Snapshots are generated in order; saving runs on several workers with
// retries.
func (ds *DataSeeder) SeedSessions(ctx context.Context, count int) error {
	start := time.Now()
	fmt.Println("🚀 Seeding demo sessions...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numbers := make([]int, count)
	for i := range numbers {
		numbers[i] = i + 1
	}

	var encodeErr error
	encoded := dataflow.Map(ctx, dataflow.From(ctx, numbers...), func(_ context.Context, n int) (demoSession, error) {
		values, err := session.Encode(ds.randomSnapshot())
		if err != nil {
			return demoSession{}, fmt.Errorf("encode demo session %d: %w", n, err)
		}
		return demoSession{id: DemoSessionID(n), values: values}, nil
	}, dataflow.WithErrorHandler(func(err error) bool {
		if encodeErr == nil {
			encodeErr = err
		}
		cancel()
		return true
	}))

	err := dataflow.ForEach(ctx, encoded, func(ctx context.Context, s demoSession) error {
		if err := ds.sessions.Save(ctx, s.id, s.values); err != nil {
			return fmt.Errorf("failed to save demo session %s: %w", s.id, err)
		}
		return nil
	}, dataflow.WithWorkers(seedWorkers), dataflow.WithRetry(seedRetries, dataflow.ExponentialBackoff(seedRetryDelay)))
	if encodeErr != nil {
		return encodeErr
	}
	if err != nil {
		return err
	}

	fmt.Printf("✅ Created %d sessions\n", count)
	fmt.Printf("🎉 Done in %v\n", time.Since(start))
	return nil
}

// ClearSessions deletes every demo session and returns how many were removed.
func (ds *DataSeeder) ClearSessions(ctx context.Context) (int, error) {
	fmt.Println("🗑️  Clearing demo sessions...")

	ids, err := ds.sessions.List(ctx, domain.SessionFilter{Prefix: DemoSessionPrefix})
	if err != nil {
		return 0, fmt.Errorf("failed to list demo sessions: %w", err)
	}

	err = dataflow.ForEach(ctx, dataflow.From(ctx, ids...), func(ctx context.Context, id string) error {
		if err := ds.sessions.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		return nil
	}, dataflow.WithWorkers(seedWorkers), dataflow.WithRetry(seedRetries, dataflow.ExponentialBackoff(seedRetryDelay)))
	if err != nil {
		return 0, err
	}

	fmt.Printf("✅ Cleared %d sessions\n", len(ids))
	return len(ids), nil
}

// DemoSessionID returns the ID of the n-th demo session.
func DemoSessionID(n int) string {
	return fmt.Sprintf("%s%04d", DemoSessionPrefix, n)
}

func (ds *DataSeeder) randomSnapshot() domain.SessionSnapshot {
	role := domain.Roles[ds.rnd.Intn(len(domain.Roles))]
	ages := ds.engine.ValidAges(role)

	shifts := make([]domain.ShiftEntry, ds.rnd.Intn(3)+1)
	for i := range shifts {
		shifts[i] = domain.ShiftEntry{
			Hours:   float64(ds.rnd.Intn(8) + 1),
			Minutes: float64(15 * ds.rnd.Intn(4)),
		}
	}

	return domain.SessionSnapshot{
		Role:     role,
		Age:      ages[ds.rnd.Intn(len(ages))],
		Shifts:   shifts,
		DarkMode: ds.rnd.Intn(2) == 0,
		SavedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

// Presets
type SeedPreset string

const (
	PresetSmall  SeedPreset = "small"
	PresetMedium SeedPreset = "medium"
	PresetLarge  SeedPreset = "large"
)

// GetPresetCount returns the number of sessions for a preset
func GetPresetCount(preset SeedPreset) int {
	switch preset {
	case PresetSmall:
		return 10
	case PresetLarge:
		return 500
	default:
		return 50
	}
}
