// Package calendar supplies the busy intervals the planner subtracts from a
// working day.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sandeepkv93/dayplan/internal/log"
	"github.com/sandeepkv93/dayplan/internal/model"
)

// ErrNotConnected reports that the user has no calendar attached.
var ErrNotConnected = errors.New("calendar: not connected")

const DefaultFreshness = 5 * time.Minute

// Provider returns the busy intervals for one calendar date in loc.
type Provider interface {
	BusyIntervals(ctx context.Context, userID, date string, loc *time.Location) ([]model.CalendarInterval, error)
}

// BlockLister is the slice of the task store StoreSource reads.
type BlockLister interface {
	ListBusyBlocks(ctx context.Context, userID string) ([]model.BusyBlock, error)
}

// StoreSource expands stored busy blocks, one-off and recurring, onto a date.
type StoreSource struct {
	blocks BlockLister
}

func NewStoreSource(blocks BlockLister) *StoreSource {
	return &StoreSource{blocks: blocks}
}

func (s *StoreSource) BusyIntervals(ctx context.Context, userID, date string, loc *time.Location) ([]model.CalendarInterval, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, fmt.Errorf("calendar: invalid date %q", date)
	}
	blocks, err := s.blocks.ListBusyBlocks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("calendar: list busy blocks: %w", err)
	}
	var out []model.CalendarInterval
	for _, b := range blocks {
		out = append(out, b.IntervalsOn(day)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

type cacheKey struct {
	userID, date, zone string
}

type cacheEntry struct {
	intervals []model.CalendarInterval
	fetchedAt time.Time
}

// Cached wraps a Provider with a freshness window. It never returns an
// error: a disconnected calendar or a failing source yields no intervals.
type Cached struct {
	src       Provider
	freshness time.Duration
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type Option func(*Cached)

func WithClock(now func() time.Time) Option {
	return func(c *Cached) { c.now = now }
}

func WithFreshness(d time.Duration) Option {
	return func(c *Cached) {
		if d > 0 {
			c.freshness = d
		}
	}
}

func NewCached(src Provider, logger *log.Logger, opts ...Option) *Cached {
	c := &Cached{
		src:       src,
		freshness: DefaultFreshness,
		logger:    log.OrNop(logger).With("component", "calendar"),
		now:       time.Now,
		entries:   make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) BusyIntervals(ctx context.Context, userID, date string, loc *time.Location) ([]model.CalendarInterval, error) {
	if loc == nil {
		loc = time.UTC
	}
	key := cacheKey{userID: userID, date: date, zone: loc.String()}
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && now.Sub(e.fetchedAt) < c.freshness {
		c.mu.Unlock()
		return e.intervals, nil
	}
	c.mu.Unlock()

	intervals, err := c.src.BusyIntervals(ctx, userID, date, loc)
	switch {
	case errors.Is(err, ErrNotConnected):
		intervals = nil
	case err != nil:
		c.logger.WithError(err).Warn("calendar fetch failed", "user_id", userID, "date", date)
		return nil, nil
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{intervals: intervals, fetchedAt: now}
	c.mu.Unlock()
	return intervals, nil
}

// Invalidate drops cached intervals for a user, e.g. after a busy block change.
func (c *Cached) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.userID == userID {
			delete(c.entries, k)
		}
	}
}
