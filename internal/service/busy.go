package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/storage"
)

// NewBusyBlock is the input of AddBusyBlock. A nil Recurrence is a one-off
// block.
type NewBusyBlock struct {
	Title      string                `json:"title"`
	Start      time.Time             `json:"start"`
	End        time.Time             `json:"end"`
	Recurrence *model.RecurrenceRule `json:"recurrence,omitempty"`
}

// invalidator is implemented by calendar providers that cache per user.
type invalidator interface {
	Invalidate(userID string)
}

func (p *Planner) AddBusyBlock(ctx context.Context, userID string, in NewBusyBlock) (model.BusyBlock, error) {
	b := model.BusyBlock{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      strings.TrimSpace(in.Title),
		Start:      in.Start,
		End:        in.End,
		Recurrence: in.Recurrence,
		CreatedAt:  p.now().UTC(),
	}
	if err := b.Validate(); err != nil {
		return model.BusyBlock{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.store.CreateBusyBlock(ctx, b); err != nil {
		return model.BusyBlock{}, fmt.Errorf("create busy block: %w", err)
	}
	p.invalidate(userID)
	return b, nil
}

func (p *Planner) ListBusyBlocks(ctx context.Context, userID string) ([]model.BusyBlock, error) {
	blocks, err := p.store.ListBusyBlocks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list busy blocks: %w", err)
	}
	return blocks, nil
}

// DeleteBusyBlock removes one of the user's blocks. Blocks owned by someone
// else report storage.ErrNotFound.
func (p *Planner) DeleteBusyBlock(ctx context.Context, userID, id string) error {
	blocks, err := p.ListBusyBlocks(ctx, userID)
	if err != nil {
		return err
	}
	owned := false
	for _, b := range blocks {
		if b.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		return fmt.Errorf("busy block %s: %w", id, storage.ErrNotFound)
	}
	if err := p.store.DeleteBusyBlock(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete busy block: %w", err)
	}
	p.invalidate(userID)
	return nil
}

func (p *Planner) invalidate(userID string) {
	if c, ok := p.calendar.(invalidator); ok {
		c.Invalidate(userID)
	}
}
