package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

// fakeClock drives both the monotonic and wall clocks in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// monday10 is a Monday at 10:00 local-equivalent time.
var monday10 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, now time.Time) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock(now)
	e := NewWithClocks(clock.Now, clock.Now, zap.NewNop())
	return e, clock
}

// workSchedule is enabled Mon-Fri 09:00-17:00 expecting Code, checks every
// evaluation, one minute of grace.
func workSchedule() domain.Schedule {
	return domain.Schedule{
		ID:                   1,
		Name:                 "work",
		StartTime:            domain.TimeOfDay{Hour: 9},
		EndTime:              domain.TimeOfDay{Hour: 17},
		Days:                 []domain.Weekday{domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday},
		ExpectedApps:         []string{"Code"},
		CheckIntervalSeconds: 0,
		GracePeriodSeconds:   60,
		Enabled:              true,
	}
}

func TestEvaluate_DisabledScheduleIsCompliant(t *testing.T) {
	e, _ := newTestEngine(t, monday10)
	sched := workSchedule()
	sched.Enabled = false

	notify, compliant := e.Evaluate(sched, "Minecraft")

	assert.False(t, notify)
	assert.True(t, compliant)
}

func TestEvaluate_OutsideWindowIsCompliant(t *testing.T) {
	e, _ := newTestEngine(t, monday10.Add(12*time.Hour)) // 22:00 Monday

	notify, compliant := e.Evaluate(workSchedule(), "Minecraft")

	assert.False(t, notify)
	assert.True(t, compliant)
}

func TestEvaluate_CompliantAppNeverStartsGrace(t *testing.T) {
	e, clock := newTestEngine(t, monday10)
	sched := workSchedule()

	for i := 0; i < 10; i++ {
		notify, compliant := e.Evaluate(sched, "Code")
		assert.False(t, notify)
		assert.True(t, compliant)
		clock.Advance(time.Second)
	}

	st := e.stateFor(sched.ID)
	assert.True(t, st.graceStarted.IsZero())
	assert.Zero(t, st.consecutiveNonCompliant)
}

func TestEvaluate_CaseInsensitiveSubstringMatch(t *testing.T) {
	tests := []struct {
		name       string
		expected   []string
		currentApp string
		want       bool
	}{
		{"exact", []string{"Chrome"}, "Chrome", true},
		{"substring", []string{"Chrome"}, "Google Chrome", true},
		{"case-insensitive", []string{"chrome"}, "GOOGLE CHROME", true},
		{"no match", []string{"Chrome"}, "Safari", false},
		{"second entry matches", []string{"Chrome", "Safari"}, "Safari", true},
		{"empty expected list accepts anything", nil, "Anything", true},
		{"empty expected list accepts no app", nil, "", true},
		{"no app fails expectations", []string{"Chrome"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := workSchedule()
			sched.ExpectedApps = tt.expected
			assert.Equal(t, tt.want, isCompliant(sched, tt.currentApp))
		})
	}
}

// TestEvaluate_GraceAndRateLimitSequence walks the grace period and the
// fixed 5-minute notification rate limit with a non-compliant app
// throughout.
func TestEvaluate_GraceAndRateLimitSequence(t *testing.T) {
	e, clock := newTestEngine(t, monday10)
	sched := workSchedule()

	// t0: non-compliance detected, grace starts, no alert yet.
	notify, compliant := e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)
	assert.False(t, compliant)

	// t0+61s: grace elapsed, first alert.
	clock.Advance(61 * time.Second)
	notify, compliant = e.Evaluate(sched, "Minecraft")
	assert.True(t, notify)
	assert.False(t, compliant)

	// t0+62s: rate-limited.
	clock.Advance(1 * time.Second)
	notify, compliant = e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)
	assert.False(t, compliant)

	// just under 5 minutes after the first alert: still rate-limited.
	clock.Advance(4*time.Minute + 58*time.Second)
	notify, _ = e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)

	// 5 minutes after the first alert: alert again.
	clock.Advance(2 * time.Second)
	notify, compliant = e.Evaluate(sched, "Minecraft")
	assert.True(t, notify)
	assert.False(t, compliant)

	st := e.stateFor(sched.ID)
	assert.Equal(t, uint32(2), st.consecutiveNonCompliant)
}

func TestEvaluate_ComplianceResetsGraceAndCounter(t *testing.T) {
	e, clock := newTestEngine(t, monday10)
	sched := workSchedule()

	e.Evaluate(sched, "Minecraft")
	clock.Advance(61 * time.Second)
	notify, _ := e.Evaluate(sched, "Minecraft")
	require.True(t, notify)

	// Back on task: grace cleared.
	clock.Advance(time.Second)
	notify, compliant := e.Evaluate(sched, "Code")
	assert.False(t, notify)
	assert.True(t, compliant)

	st := e.stateFor(sched.ID)
	assert.True(t, st.graceStarted.IsZero())
	assert.Zero(t, st.consecutiveNonCompliant)

	// Drifting off again starts a fresh grace period.
	clock.Advance(time.Second)
	notify, compliant = e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)
	assert.False(t, compliant)
}

// TestEvaluate_CheckIntervalShortCircuit pins the early-return behavior:
// inside the check interval the engine reports compliant and mutates no
// state, even when grace has already elapsed.
func TestEvaluate_CheckIntervalShortCircuit(t *testing.T) {
	e, clock := newTestEngine(t, monday10)
	sched := workSchedule()
	sched.CheckIntervalSeconds = 300

	notify, compliant := e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)
	assert.False(t, compliant)

	// 61s later grace has elapsed, but the check interval has not.
	clock.Advance(61 * time.Second)
	notify, compliant = e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)
	assert.True(t, compliant)

	st := e.stateFor(sched.ID)
	assert.True(t, st.lastNotification.IsZero())

	// Once the interval passes the pending grace expiry fires.
	clock.Advance(240 * time.Second)
	notify, compliant = e.Evaluate(sched, "Minecraft")
	assert.True(t, notify)
	assert.False(t, compliant)
}

func TestEvaluate_FirstEvaluationAlwaysChecks(t *testing.T) {
	e, _ := newTestEngine(t, monday10)
	sched := workSchedule()
	sched.CheckIntervalSeconds = 3600

	// No lastCheck yet, so the interval does not apply.
	_, compliant := e.Evaluate(sched, "Minecraft")
	assert.False(t, compliant)
}

func TestEvaluate_UnsavedScheduleUsesDegenerateKey(t *testing.T) {
	e, _ := newTestEngine(t, monday10)
	sched := workSchedule()
	sched.ID = 0

	notify, compliant := e.Evaluate(sched, "Minecraft")
	assert.False(t, notify)
	assert.False(t, compliant)

	st := e.stateFor(0)
	assert.False(t, st.graceStarted.IsZero())
}

func TestIsWithinSchedule(t *testing.T) {
	tests := []struct {
		name  string
		start domain.TimeOfDay
		end   domain.TimeOfDay
		days  []domain.Weekday
		now   time.Time
		want  bool
	}{
		{
			name:  "inside normal window",
			start: domain.TimeOfDay{Hour: 9}, end: domain.TimeOfDay{Hour: 17},
			days: []domain.Weekday{domain.Monday},
			now:  monday10,
			want: true,
		},
		{
			name:  "start boundary is inclusive",
			start: domain.TimeOfDay{Hour: 10}, end: domain.TimeOfDay{Hour: 17},
			days: []domain.Weekday{domain.Monday},
			now:  monday10,
			want: true,
		},
		{
			name:  "before window",
			start: domain.TimeOfDay{Hour: 11}, end: domain.TimeOfDay{Hour: 17},
			days: []domain.Weekday{domain.Monday},
			now:  monday10,
			want: false,
		},
		{
			name:  "wrong day",
			start: domain.TimeOfDay{Hour: 9}, end: domain.TimeOfDay{Hour: 17},
			days: []domain.Weekday{domain.Tuesday},
			now:  monday10,
			want: false,
		},
		{
			name:  "overnight window late evening",
			start: domain.TimeOfDay{Hour: 22}, end: domain.TimeOfDay{Hour: 6},
			days: []domain.Weekday{domain.Monday},
			now:  monday10.Add(13 * time.Hour), // 23:00
			want: true,
		},
		{
			name:  "overnight window early morning",
			start: domain.TimeOfDay{Hour: 22}, end: domain.TimeOfDay{Hour: 6},
			days: []domain.Weekday{domain.Monday},
			now:  monday10.Add(-8 * time.Hour), // 02:00
			want: true,
		},
		{
			name:  "overnight window midday",
			start: domain.TimeOfDay{Hour: 22}, end: domain.TimeOfDay{Hour: 6},
			days: []domain.Weekday{domain.Monday},
			now:  monday10.Add(2 * time.Hour), // 12:00
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(tt.now)
			e := NewWithClocks(clock.Now, clock.Now, zap.NewNop())
			sched := domain.Schedule{
				StartTime: tt.start,
				EndTime:   tt.end,
				Days:      tt.days,
				Enabled:   true,
			}
			assert.Equal(t, tt.want, e.IsWithinSchedule(sched))
		})
	}
}

// TestEvaluate_ConcurrentSchedules exercises the keyed state store from
// multiple goroutines; run with -race.
func TestEvaluate_ConcurrentSchedules(t *testing.T) {
	e, _ := newTestEngine(t, monday10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			sched := workSchedule()
			sched.ID = id
			for j := 0; j < 100; j++ {
				e.Evaluate(sched, "Minecraft")
			}
		}(int64(i % 4))
	}
	wg.Wait()

	for id := int64(0); id < 4; id++ {
		st := e.stateFor(id)
		assert.False(t, st.graceStarted.IsZero())
	}
}
