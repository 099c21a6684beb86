package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/safequery/internal/crawler"
)

// Scheduler re-runs the crawler in the background. When Cron is set it
// wins over the plain Interval.
type Scheduler struct {
	Crawler  *crawler.Crawler
	Interval time.Duration
	Cron     string
	Stop     chan struct{}

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Interval <= 0 {
		s.Interval = 4 * time.Hour
	}
	tick := s.Interval / 10
	if tick < time.Minute {
		tick = time.Minute
	}
	logger := log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	ticker := time.NewTicker(tick)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if !s.isDue() {
					continue
				}
				now := time.Now()
				s.lastRun = &now
				if stored, err := s.Crawler.Run(context.Background()); err != nil {
					logger.Printf("scheduled crawl aborted: %v", err)
				} else {
					logger.Printf("scheduled crawl stored %d documents", stored)
				}
			}
		}
	}()
}

// isDue checks the cron expression when present, otherwise the interval.
// A fresh scheduler is never due immediately; the startup crawl covers
// that case.
func (s *Scheduler) isDue() bool {
	now := time.Now()
	base := now
	if s.lastRun != nil {
		base = *s.lastRun
	}

	if s.Cron != "" {
		if expr, err := cronexpr.Parse(s.Cron); err == nil {
			if s.lastRun == nil {
				s.lastRun = &now
				return false
			}
			return !expr.Next(base).After(now)
		}
	}

	if s.lastRun == nil {
		s.lastRun = &now
		return false
	}
	return now.Sub(base) >= s.Interval
}
