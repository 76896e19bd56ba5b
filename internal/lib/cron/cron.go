package cron

import (
	"time"

	"github.com/robfig/cron/v3"
)

// quartz style expressions carry a leading seconds field and use '?' for
// "no specific value", the parser accepts both those and plain 5 field specs.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewRunner builds a cron runner sharing the parser used for validation, an
// expression accepted by ParseCronSchedule is accepted by the runner too.
func NewRunner() *cron.Cron {
	return cron.New(cron.WithParser(parser))
}

type ScheduleSpec struct {
	interval string
	schedule cron.Schedule
}

func ParseCronSchedule(interval string) (*ScheduleSpec, error) {
	schedule, err := parser.Parse(interval)
	if err != nil {
		return nil, err
	}
	return &ScheduleSpec{
		interval: interval,
		schedule: schedule,
	}, nil
}

func (s *ScheduleSpec) Interval() string {
	return s.interval
}

// Next returns the first schedule time strictly after t.
func (s *ScheduleSpec) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Prev returns the last schedule time strictly before t. The underlying
// schedule only walks forward, so the fire is located by scanning a window
// behind t, doubling it until a fire is found.
func (s *ScheduleSpec) Prev(t time.Time) time.Time {
	window := 2 * time.Hour
	for i := 0; i < 32; i++ {
		var last time.Time
		for fire := s.schedule.Next(t.Add(-window)); fire.Before(t); fire = s.schedule.Next(fire) {
			last = fire
		}
		if !last.IsZero() {
			return last
		}
		window *= 2
	}
	return time.Time{}
}

// IsSubDaily reports whether the schedule can fire more than once within a
// single day.
func (s *ScheduleSpec) IsSubDaily() bool {
	const samples = 10
	fire := s.schedule.Next(time.Now())
	for i := 0; i < samples; i++ {
		next := s.schedule.Next(fire)
		if next.Sub(fire) < 24*time.Hour {
			return true
		}
		fire = next
	}
	return false
}
