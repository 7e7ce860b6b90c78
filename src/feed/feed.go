package feed

import (
	"fmt"

	"github.com/arafat2020/feedwire/src/types"
	"github.com/rs/zerolog"
)

// ActionKind tags an optimistic action.
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionLike
	ActionDislike
	ActionDelete
	ActionEdit
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionLike:
		return "like"
	case ActionDislike:
		return "dislike"
	case ActionDelete:
		return "delete"
	case ActionEdit:
		return "edit"
	}
	return "unknown"
}

// Action is a tentative local mutation. Key is the correlation key: the
// entity id, or the client-generated temp id for ActionAdd. The action
// stays pending until a confirmed event bearing the same key arrives.
type Action struct {
	Kind    ActionKind
	Key     string
	UserID  string       // acting user, for like/dislike
	Content string       // replacement content, for edit
	Entity  types.Entity // the speculative entity, for add
}

// Engine overlays a queue of pending optimistic actions onto the last
// confirmed base state. Base is mutated only by confirmed events; Render
// folds the pending queue over a copy, so the overlay is transparent once
// every action has been confirmed. Not safe for concurrent use: the
// engine belongs to a single UI/event goroutine.
type Engine struct {
	base    []types.Entity
	pending []Action
	logger  zerolog.Logger
}

// NewEngine creates an engine with an empty base.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "reconcile").Logger()}
}

// SetBase replaces the confirmed state, e.g. from an initial REST fetch.
// Pending actions are kept and reapplied on top.
func (e *Engine) SetBase(entities []types.Entity) {
	e.base = make([]types.Entity, len(entities))
	copy(e.base, entities)
}

// Stage appends an optimistic action. The change is visible in the next
// Render, before any network round trip completes.
func (e *Engine) Stage(a Action) error {
	if a.Key == "" {
		return fmt.Errorf("action %s without correlation key", a.Kind)
	}
	if a.Kind == ActionAdd {
		if a.Entity == nil {
			return fmt.Errorf("add action without entity")
		}
		if a.Entity.EntityID() != a.Key {
			return fmt.Errorf("add action key %q does not match entity id %q", a.Key, a.Entity.EntityID())
		}
	}
	e.pending = append(e.pending, a)
	return nil
}

// Render produces the view: base with every pending action folded on
// top. Base entities are cloned first, so pending actions never mutate
// confirmed state.
func (e *Engine) Render() []types.Entity {
	view := make([]types.Entity, len(e.base))
	for i, ent := range e.base {
		view[i] = ent.CloneEntity()
	}
	for _, a := range e.pending {
		view = applyAction(view, a)
	}
	return view
}

// ApplyConfirmed merges a confirmed snapshot into base: replace by id
// when present, insert at the front when absent. Applying the same
// snapshot twice produces no observable difference, so a REST response
// and the matching broadcast echo can both be folded safely.
//
// correlationKey names the pending action this snapshot confirms: the
// entity id for like/dislike/edit, or the client temp id for a create
// (temp-id promotion replaces the speculative entry, never duplicates
// it). The oldest matching action is dropped. Broadcasts that confirm
// nothing of ours pass an empty key, so base picks up the remote truth
// while our still-pending actions are reapplied on top by Render.
func (e *Engine) ApplyConfirmed(entity types.Entity, correlationKey string) {
	id := entity.EntityID()
	replaced := false
	for i, ent := range e.base {
		if ent.EntityID() == id {
			e.base[i] = entity
			replaced = true
			break
		}
	}
	if !replaced {
		e.base = append([]types.Entity{entity}, e.base...)
	}

	if correlationKey != "" {
		e.resolveFirst(correlationKey)
	}
}

// ApplyDeleted removes an entity from base and drops every pending
// action for it. Unknown ids are a no-op, which makes duplicate delete
// events harmless.
func (e *Engine) ApplyDeleted(id string) {
	for i, ent := range e.base {
		if ent.EntityID() == id {
			e.base = append(e.base[:i], e.base[i+1:]...)
			break
		}
	}
	e.resolveAll(id)
}

// Rollback removes the oldest pending action for a correlation key after
// the request behind it failed, reverting the rendered view.
func (e *Engine) Rollback(key string) {
	if e.resolveFirst(key) {
		e.logger.Debug().Str("key", key).Msg("rolled back")
	}
}

// PendingCount returns the number of unresolved actions.
func (e *Engine) PendingCount() int {
	return len(e.pending)
}

// resolveFirst drops the oldest pending action whose key matches,
// pairing one confirmation (or failure) with one action.
func (e *Engine) resolveFirst(key string) bool {
	for i, a := range e.pending {
		if a.Key == key {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return true
		}
	}
	return false
}

// resolveAll drops every pending action for an entity that no longer
// exists.
func (e *Engine) resolveAll(key string) {
	kept := e.pending[:0]
	for _, a := range e.pending {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	e.pending = kept
}

// applyAction folds one action into the view.
func applyAction(view []types.Entity, a Action) []types.Entity {
	switch a.Kind {
	case ActionAdd:
		return append([]types.Entity{a.Entity.CloneEntity()}, view...)

	case ActionLike:
		if ent := findEntity(view, a.Key); ent != nil {
			ent.ToggleLike(a.UserID)
		}

	case ActionDislike:
		if ent := findEntity(view, a.Key); ent != nil {
			ent.ToggleDislike(a.UserID)
		}

	case ActionDelete:
		for i, ent := range view {
			if ent.EntityID() == a.Key {
				return append(view[:i], view[i+1:]...)
			}
		}

	case ActionEdit:
		if ent := findEntity(view, a.Key); ent != nil {
			ent.SetContent(a.Content)
		}
	}
	return view
}

func findEntity(view []types.Entity, id string) types.Entity {
	for _, ent := range view {
		if ent.EntityID() == id {
			return ent
		}
	}
	return nil
}
