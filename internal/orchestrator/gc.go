package orchestrator

import (
	"context"
	"log"
	"sort"

	"gridloop/internal/model"
	"gridloop/internal/mutation"
)

// maybeCollect sweeps stale assignments at most once per GCInterval,
// however many heartbeats arrive in between
func (o *Orchestrator) maybeCollect(ctx context.Context, tx mutation.WriteTransaction, now int64) error {
	var meta model.GCMeta
	ok, err := tx.Get(ctx, gcMetaKey, &meta)
	if err != nil {
		return err
	}
	if ok && now-meta.LastGCTimestamp <= o.cfg.GCInterval.Milliseconds() {
		return nil
	}
	if err := tx.Set(ctx, gcMetaKey, model.GCMeta{LastGCTimestamp: now}); err != nil {
		return err
	}
	_, err = o.collect(ctx, tx, now)
	return err
}

// collect evicts assignments older than GCThreshold and frees their slots.
// It returns the evicted client IDs.
func (o *Orchestrator) collect(ctx context.Context, tx mutation.WriteTransaction, now int64) ([]string, error) {
	assignments, err := ListAssignments(ctx, tx)
	if err != nil {
		return nil, err
	}

	threshold := o.cfg.GCThreshold.Milliseconds()
	var evicted []string
	released := make(map[string][]string)
	for _, a := range assignments {
		if now-a.AliveTimestamp <= threshold {
			continue
		}
		if err := tx.Del(ctx, assignmentKey(a.ID)); err != nil {
			return nil, err
		}
		evicted = append(evicted, a.ID)
		released[a.RoomID] = append(released[a.RoomID], a.Color)
	}

	roomIDs := make([]string, 0, len(released))
	for id := range released {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)
	for _, id := range roomIDs {
		if err := releaseSlots(ctx, tx, id, released[id]); err != nil {
			return nil, err
		}
	}

	if len(evicted) > 0 {
		log.Printf("Collected %d stale room assignments across %d rooms", len(evicted), len(roomIDs))
	}
	return evicted, nil
}
