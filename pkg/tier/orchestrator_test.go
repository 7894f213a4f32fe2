package tier_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-empathy/pkg/tier"
)

type fatalErr struct{}

func (fatalErr) Error() string { return "bad request" }
func (fatalErr) Fatal() bool   { return true }

type counter struct {
	n atomic.Int32
}

func (c *counter) tier(name string, payload string, err error) tier.Tier[string, string] {
	return tier.Tier[string, string]{
		Name:    name,
		Timeout: time.Second,
		Invoke: func(ctx context.Context, req string) (string, error) {
			c.n.Add(1)
			if err != nil {
				return "", err
			}
			return payload, nil
		},
	}
}

func terminal(req string) string { return "canned:" + req }

func TestRunEmptyChain(t *testing.T) {
	o := tier.New(tier.Chain[string, string]{Name: "empty", Terminal: terminal})

	res := o.Run(context.Background(), "x")

	assert.True(t, res.IsFallback)
	assert.Equal(t, tier.FallbackName, res.ProviderUsed)
	assert.Equal(t, "canned:x", res.Payload)
	assert.Empty(t, res.Attempts)
}

func TestRunFirstSuccessShortCircuits(t *testing.T) {
	var a, b, c counter
	o := tier.New(tier.Chain[string, string]{
		Name: "text",
		Tiers: []tier.Tier[string, string]{
			a.tier("a", "", errors.New("boom")),
			b.tier("b", "from-b", nil),
			c.tier("c", "from-c", nil),
		},
		Terminal: terminal,
	})

	res := o.Run(context.Background(), "x")

	assert.False(t, res.IsFallback)
	assert.Equal(t, "b", res.ProviderUsed)
	assert.Equal(t, "from-b", res.Payload)
	assert.EqualValues(t, 1, a.n.Load())
	assert.EqualValues(t, 1, b.n.Load())
	assert.EqualValues(t, 0, c.n.Load(), "tiers after the winner must not be invoked")
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, tier.OutcomeFailed, res.Attempts[0].Outcome)
	assert.Equal(t, tier.OutcomeSuccess, res.Attempts[1].Outcome)
}

func TestRunAllFail(t *testing.T) {
	var a, b counter
	o := tier.New(tier.Chain[string, string]{
		Name: "text",
		Tiers: []tier.Tier[string, string]{
			a.tier("a", "", errors.New("a down")),
			b.tier("b", "", errors.New("b down")),
		},
		Terminal: terminal,
	})

	res := o.Run(context.Background(), "sad")

	assert.True(t, res.IsFallback)
	assert.Equal(t, tier.FallbackName, res.ProviderUsed)
	assert.Equal(t, "canned:sad", res.Payload)
	assert.Len(t, res.Attempts, 2)
}

func TestRunTimeoutEscalates(t *testing.T) {
	var b counter
	slow := tier.Tier[string, string]{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Invoke: func(ctx context.Context, req string) (string, error) {
			// Ignores ctx on purpose; the orchestrator must not wait.
			time.Sleep(500 * time.Millisecond)
			return "late", nil
		},
		Classify: func(error) tier.Class { return tier.ClassFatal },
	}
	o := tier.New(tier.Chain[string, string]{
		Name:     "text",
		Tiers:    []tier.Tier[string, string]{slow, b.tier("b", "ok", nil)},
		Terminal: terminal,
	}, tier.WithAbortOnFatal())

	start := time.Now()
	res := o.Run(context.Background(), "x")

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, "b", res.ProviderUsed)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, tier.OutcomeTimeout, res.Attempts[0].Outcome)
	assert.Equal(t, tier.ClassEscalate, res.Attempts[0].Class)
	assert.ErrorIs(t, res.Attempts[0].Err, tier.ErrTimeout)
}

// A Fatal error is logged and recorded, but the walk still continues to the
// next tier unless WithAbortOnFatal is set.
func TestRunFatalFallsThroughByDefault(t *testing.T) {
	var a, b counter
	o := tier.New(tier.Chain[string, string]{
		Name: "text",
		Tiers: []tier.Tier[string, string]{
			a.tier("a", "", fatalErr{}),
			b.tier("b", "ok", nil),
		},
		Terminal: terminal,
	})

	res := o.Run(context.Background(), "x")

	assert.Equal(t, "b", res.ProviderUsed)
	assert.Equal(t, tier.ClassFatal, res.Attempts[0].Class)
	assert.EqualValues(t, 1, b.n.Load())
}

func TestRunAbortOnFatal(t *testing.T) {
	var a, b counter
	o := tier.New(tier.Chain[string, string]{
		Name: "text",
		Tiers: []tier.Tier[string, string]{
			a.tier("a", "", fatalErr{}),
			b.tier("b", "ok", nil),
		},
		Terminal: terminal,
	}, tier.WithAbortOnFatal())

	res := o.Run(context.Background(), "x")

	assert.True(t, res.IsFallback)
	assert.EqualValues(t, 0, b.n.Load())
}

func TestRunSkipsUnavailableTier(t *testing.T) {
	var a, b counter
	cloud := a.tier("cloud", "audio", nil)
	cloud.Available = func() bool { return false }

	o := tier.New(tier.Chain[string, string]{
		Name:     "speech",
		Tiers:    []tier.Tier[string, string]{cloud, b.tier("offline", "wav", nil)},
		Terminal: terminal,
	})

	res := o.Run(context.Background(), "x")

	assert.EqualValues(t, 0, a.n.Load())
	assert.EqualValues(t, 1, b.n.Load())
	assert.Equal(t, "offline", res.ProviderUsed)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, tier.OutcomeSkipped, res.Attempts[0].Outcome)
	assert.Equal(t, tier.ClassConfigAbsent, res.Attempts[0].Class)
}

func TestRunRecoversPanics(t *testing.T) {
	boom := tier.Tier[string, string]{
		Name:   "boom",
		Invoke: func(context.Context, string) (string, error) { panic("nil map") },
	}
	o := tier.New(tier.Chain[string, string]{
		Name:     "text",
		Tiers:    []tier.Tier[string, string]{boom},
		Terminal: func(string) string { panic("terminal too") },
	})

	res := o.Run(context.Background(), "x")

	assert.True(t, res.IsFallback)
	assert.Equal(t, "", res.Payload)
	var pe *tier.PanicError
	assert.ErrorAs(t, res.Attempts[0].Err, &pe)
	assert.Equal(t, tier.ClassEscalate, res.Attempts[0].Class)
}

func TestRunRecoversPanickingAvailable(t *testing.T) {
	var next counter
	o := tier.New(tier.Chain[string, string]{
		Name: "speech",
		Tiers: []tier.Tier[string, string]{
			{
				Name:      "cloud",
				Available: func() bool { panic("config read failed") },
				Invoke:    func(context.Context, string) (string, error) { return "unreachable", nil },
			},
			next.tier("offline", "from-offline", nil),
		},
		Terminal: terminal,
	})

	var res tier.Result[string]
	require.NotPanics(t, func() { res = o.Run(context.Background(), "x") })

	assert.Equal(t, "offline", res.ProviderUsed)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, tier.OutcomeFailed, res.Attempts[0].Outcome)
	assert.Equal(t, tier.ClassEscalate, res.Attempts[0].Class)
	var pe *tier.PanicError
	assert.ErrorAs(t, res.Attempts[0].Err, &pe)
	assert.Equal(t, int32(1), next.n.Load())
}

func TestRunRecoversPanickingClassify(t *testing.T) {
	o := tier.New(tier.Chain[string, string]{
		Name: "text",
		Tiers: []tier.Tier[string, string]{{
			Name:     "cloud",
			Invoke:   func(context.Context, string) (string, error) { return "", fatalErr{} },
			Classify: func(error) tier.Class { panic("bad classifier") },
		}},
		Terminal: terminal,
	}, tier.WithAbortOnFatal())

	var res tier.Result[string]
	require.NotPanics(t, func() { res = o.Run(context.Background(), "x") })

	assert.True(t, res.IsFallback)
	assert.Equal(t, "canned:x", res.Payload)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, tier.ClassEscalate, res.Attempts[0].Class)
}

type panickingObserver struct{}

func (panickingObserver) ObserveAttempt(string, tier.Attempt) { panic("attempt sink") }
func (panickingObserver) ObserveResult(string, string, bool, time.Duration) {
	panic("result sink")
}

func TestRunRecoversPanickingObserver(t *testing.T) {
	var a counter
	o := tier.New(tier.Chain[string, string]{
		Name:     "text",
		Tiers:    []tier.Tier[string, string]{a.tier("a", "ok", nil)},
		Terminal: terminal,
	}, tier.WithObserver(panickingObserver{}))

	var res tier.Result[string]
	require.NotPanics(t, func() { res = o.Run(context.Background(), "x") })
	assert.Equal(t, "ok", res.Payload)
	assert.Equal(t, "a", res.ProviderUsed)
}

func TestRunCanceledContext(t *testing.T) {
	var a counter
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := tier.New(tier.Chain[string, string]{
		Name:     "text",
		Tiers:    []tier.Tier[string, string]{a.tier("a", "ok", nil)},
		Terminal: terminal,
	})

	res := o.Run(ctx, "x")

	assert.True(t, res.IsFallback)
	assert.EqualValues(t, 0, a.n.Load())
}

func TestRunNilTerminal(t *testing.T) {
	o := tier.New(tier.Chain[string, *string]{Name: "speech"})

	res := o.Run(context.Background(), "x")

	assert.True(t, res.IsFallback)
	assert.Nil(t, res.Payload)
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts []tier.Attempt
	results  []string
}

func (r *recordingObserver) ObserveAttempt(chain string, a tier.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *recordingObserver) ObserveResult(chain, provider string, fallback bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, chain+"/"+provider)
}

func TestRunNotifiesObserver(t *testing.T) {
	var a, b counter
	obs := &recordingObserver{}
	o := tier.New(tier.Chain[string, string]{
		Name: "text",
		Tiers: []tier.Tier[string, string]{
			a.tier("a", "", errors.New("down")),
			b.tier("b", "ok", nil),
		},
		Terminal: terminal,
	}, tier.WithObserver(obs))

	o.Run(context.Background(), "x")

	assert.Len(t, obs.attempts, 2)
	assert.Equal(t, []string{"text/b"}, obs.results)
}

func TestRunConcurrentRequests(t *testing.T) {
	var a counter
	o := tier.New(tier.Chain[string, string]{
		Name:     "text",
		Tiers:    []tier.Tier[string, string]{a.tier("a", "ok", nil)},
		Terminal: terminal,
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := o.Run(context.Background(), "x")
			assert.Equal(t, "a", res.ProviderUsed)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 50, a.n.Load())
}

func TestDefaultClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want tier.Class
	}{
		{"plain", errors.New("x"), tier.ClassEscalate},
		{"fatal", fatalErr{}, tier.ClassFatal},
		{"wrapped fatal", errors.Join(errors.New("ctx"), fatalErr{}), tier.ClassFatal},
		{"deadline", context.DeadlineExceeded, tier.ClassEscalate},
		{"timeout", tier.ErrTimeout, tier.ClassEscalate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tier.DefaultClassify(tt.err))
		})
	}
}
