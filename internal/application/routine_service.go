package application

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"qzone-agent/configs"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// RoutineService struct - The scheduler: a single tick loop that drives
// monitoring, activity-conditioned self-posting, and the daily diary.
// Cooldown timestamps are persisted after every action so restarts cannot
// bypass them.
type RoutineService struct {
	interactions *InteractionService
	commands     *CommandService
	diary        *DiaryService
	activities   output.ActivityProvider
	generator    output.TextGenerator
	store        output.ScheduleStore

	personality string
	routine     configs.Routine
	schedule    configs.Schedule

	mu    sync.Mutex
	state *domain.ScheduleState

	now  func() time.Time
	rand *rand.Rand
}

// NewRoutineService func - Creates the scheduler and loads persisted
// cooldown state.
func NewRoutineService(
	interactions *InteractionService,
	commands *CommandService,
	diary *DiaryService,
	activities output.ActivityProvider,
	generator output.TextGenerator,
	store output.ScheduleStore,
	personality string,
	routine configs.Routine,
	schedule configs.Schedule,
) (*RoutineService, error) {
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading schedule state: %w", err)
	}
	return &RoutineService{
		interactions: interactions,
		commands:     commands,
		diary:        diary,
		activities:   activities,
		generator:    generator,
		store:        store,
		personality:  personality,
		routine:      routine,
		schedule:     schedule,
		state:        state,
		now:          time.Now,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run blocks on the tick loop until ctx is cancelled. Ticks never overlap:
// the next tick waits for the previous one to finish.
func (s *RoutineService) Run(ctx context.Context) {
	interval := s.checkInterval()
	logrus.Infof("Scheduler started, tick every %v", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Warm tick so a restart does not sit idle for a full interval.
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduler pass: activity lookup, browse decision, post
// decision, diary check. Exposed for tests and for a startup warm tick.
func (s *RoutineService) Tick(ctx context.Context) {
	now := s.now()

	activity := s.currentActivity(ctx)
	if activity != nil && activity.Kind == domain.ActivitySleeping {
		logrus.Debugf("Persona is sleeping (%s), skipping tick", activity.Description)
		return
	}

	if s.routine.Enabled {
		s.maybeBrowse(ctx, now, activity)
		s.maybePost(ctx, now, activity)
	}
	if s.schedule.Enabled {
		s.timetablePost(ctx, now)
	}
	s.maybeDiary(ctx, now)
}

func (s *RoutineService) currentActivity(ctx context.Context) *domain.Activity {
	if s.activities == nil {
		return nil
	}
	activity, err := s.activities.CurrentActivity(ctx)
	if err != nil {
		logrus.Warnf("Activity lookup failed: %v", err)
		return nil
	}
	return activity
}

// maybeBrowse runs a monitoring cycle when the browse cooldown has elapsed
// and the decide gate agrees.
func (s *RoutineService) maybeBrowse(ctx context.Context, now time.Time, activity *domain.Activity) {
	s.mu.Lock()
	allowed := s.state.CanBrowse(now, s.browseCooldown())
	s.mu.Unlock()
	if !allowed {
		return
	}
	if !s.decide(ctx, activity, "scroll through your friends' feeds and react to their posts") {
		return
	}

	if err := s.interactions.RunCycle(ctx); err != nil {
		logrus.Errorf("Monitoring cycle failed: %v", err)
		return
	}
	s.updateState(func(state *domain.ScheduleState) { state.LastBrowseAt = now })
}

// maybePost publishes a free-topic post when the post cooldown has elapsed
// and the decide gate agrees.
func (s *RoutineService) maybePost(ctx context.Context, now time.Time, activity *domain.Activity) {
	s.mu.Lock()
	allowed := s.state.CanPost(now, s.postCooldown())
	s.mu.Unlock()
	if !allowed {
		return
	}
	if !s.decide(ctx, activity, "write a little post about your day") {
		return
	}

	topic := ""
	if activity != nil {
		topic = activity.Description
	}
	text, err := s.commands.generatePost(ctx, topic)
	if err != nil {
		logrus.Warnf("Routine post generation failed: %v", err)
		return
	}
	if _, err := s.commands.publishWithImages(ctx, text); err != nil {
		logrus.Warnf("Routine post failed: %v", err)
		return
	}
	s.updateState(func(state *domain.ScheduleState) { state.LastPostAt = now })
}

// timetablePost implements the fixed timetable mode: post when the wall
// clock is within one tick of a configured time, at most once per slot,
// behind the daily probability gate.
func (s *RoutineService) timetablePost(ctx context.Context, now time.Time) {
	slot, ok := s.dueSlot(now)
	if !ok {
		return
	}

	s.mu.Lock()
	// A slot already served today is recognizable by LastPostAt.
	alreadyServed := s.state.LastPostAt.After(slot) || s.state.LastPostAt.Equal(slot)
	s.mu.Unlock()
	if alreadyServed {
		return
	}

	if s.schedule.Probability > 0 && s.schedule.Probability < 1 {
		if s.rand.Float64() >= s.schedule.Probability {
			logrus.Debug("Timetable slot skipped by probability gate")
			s.updateState(func(state *domain.ScheduleState) { state.LastPostAt = now })
			return
		}
	}

	text, err := s.commands.generatePost(ctx, "")
	if err != nil {
		logrus.Warnf("Timetable post generation failed: %v", err)
		return
	}
	if _, err := s.commands.publishWithImages(ctx, text); err != nil {
		logrus.Warnf("Timetable post failed: %v", err)
		return
	}
	s.updateState(func(state *domain.ScheduleState) { state.LastPostAt = now })
}

// dueSlot returns today's most recent timetable time that now has passed,
// shifted by the per-day random fluctuation.
func (s *RoutineService) dueSlot(now time.Time) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, clock := range s.schedule.Times {
		at, err := time.ParseInLocation(domain.ClockLayout, clock, time.Local)
		if err != nil {
			logrus.Warnf("Bad timetable entry %q", clock)
			continue
		}
		slot := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, time.Local)
		slot = slot.Add(s.dailyJitter(now, clock))
		if !slot.After(now) && (!found || slot.After(latest)) {
			latest = slot
			found = true
		}
	}
	return latest, found
}

// dailyJitter derives a deterministic per-day offset within the configured
// fluctuation, so one day's slot does not drift during the day.
func (s *RoutineService) dailyJitter(now time.Time, clock string) time.Duration {
	if s.schedule.RandomMinutes <= 0 {
		return 0
	}
	seed := int64(0)
	for _, r := range now.Format(domain.DateLayout) + clock {
		seed = seed*31 + int64(r)
	}
	if seed < 0 {
		seed = -seed
	}
	span := int64(s.schedule.RandomMinutes*2 + 1)
	offset := seed%span - int64(s.schedule.RandomMinutes)
	return time.Duration(offset) * time.Minute
}

// maybeDiary generates (and maybe publishes) the daily diary when the
// configured time has passed, at most once per date.
func (s *RoutineService) maybeDiary(ctx context.Context, now time.Time) {
	s.mu.Lock()
	lastDate := s.state.LastDiaryDate
	s.mu.Unlock()

	if !s.diary.Due(now, lastDate) {
		return
	}

	date := now.Format(domain.DateLayout)
	if _, err := s.diary.Generate(ctx, date); err != nil {
		logrus.Warnf("Daily diary for %s failed: %v", date, err)
		// Mark the date anyway: insufficient data will not cure itself today,
		// and retrying every tick would spam the generator.
		s.updateState(func(state *domain.ScheduleState) { state.LastDiaryDate = date })
		return
	}
	s.updateState(func(state *domain.ScheduleState) { state.LastDiaryDate = date })
}

// decide asks the LLM whether the persona would do action right now. No
// activity provider or a generation failure defaults to yes, matching the
// cooldown being the primary brake.
func (s *RoutineService) decide(ctx context.Context, activity *domain.Activity, action string) bool {
	description := "going about your day"
	if activity != nil {
		description = activity.Description
	}
	answer, err := s.generator.Complete(ctx, decidePrompt(s.personality, description, action))
	if err != nil {
		logrus.Warnf("Decide gate failed, defaulting to yes: %v", err)
		return true
	}
	return isYes(answer)
}

// updateState applies a mutation and persists it. Persist failure is logged;
// the in-memory state keeps the mutation so this process still honors it.
func (s *RoutineService) updateState(mutate func(*domain.ScheduleState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.state)
	if err := s.store.Save(s.state); err != nil {
		logrus.Errorf("Persisting schedule state failed: %v", err)
	}
}

func (s *RoutineService) checkInterval() time.Duration {
	if s.routine.CheckIntervalMinutes > 0 {
		return time.Duration(s.routine.CheckIntervalMinutes) * time.Minute
	}
	return 10 * time.Minute
}

func (s *RoutineService) postCooldown() time.Duration {
	if s.routine.PostCooldownMinutes > 0 {
		return time.Duration(s.routine.PostCooldownMinutes) * time.Minute
	}
	return 2 * time.Hour
}

func (s *RoutineService) browseCooldown() time.Duration {
	if s.routine.BrowseCooldownMinutes > 0 {
		return time.Duration(s.routine.BrowseCooldownMinutes) * time.Minute
	}
	return time.Hour
}
