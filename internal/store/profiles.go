package store

import (
	"context"
	"fmt"

	"github.com/desertthunder/lovewrapped/internal/shared"
)

// Slot names a stored profile.
type Slot string

const (
	SlotSelf    Slot = "self"
	SlotPartner Slot = "partner"
)

// ParseSlot validates a slot name from user input.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotSelf, SlotPartner:
		return Slot(s), nil
	default:
		return "", fmt.Errorf("%w: slot must be %q or %q, got %q", shared.ErrInvalidArgument, SlotSelf, SlotPartner, s)
	}
}

func (s Slot) key() string {
	return "profile_" + string(s)
}

// ProfileStore keeps one serialized profile per slot. Bytes are stored unchanged.
type ProfileStore struct {
	kv KV
}

func NewProfileStore(kv KV) *ProfileStore {
	return &ProfileStore{kv: kv}
}

func (p *ProfileStore) Save(ctx context.Context, slot Slot, data []byte) error {
	return p.kv.Set(ctx, slot.key(), string(data))
}

// Load returns the stored bytes; found is false for an empty slot.
func (p *ProfileStore) Load(ctx context.Context, slot Slot) ([]byte, bool, error) {
	v, ok, err := p.kv.Get(ctx, slot.key())
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (p *ProfileStore) Clear(ctx context.Context, slot Slot) error {
	return p.kv.Delete(ctx, slot.key())
}
