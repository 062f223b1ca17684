package service

import (
	"gridloop/internal/activity"
	"gridloop/internal/grid"
	"gridloop/internal/model"
	"gridloop/internal/mutation"
	"gridloop/internal/orchestrator"
	"gridloop/internal/rooms"
	"gridloop/internal/scheduler"
)

// Registries maps each room type to its mutator set
type Registries map[model.RoomType]*mutation.Registry

// NewRegistries composes every room type's mutators with their middleware.
// Clients build the same registries for speculative applies.
func NewRegistries(orch *orchestrator.Orchestrator) Registries {
	orchRegistry := mutation.NewRegistry().
		Register(orch.Mutators(), rooms.Gate(model.RoomTypeOrchestrator))

	playMutators := mutation.Defs{}
	for name, m := range grid.Mutators() {
		playMutators[name] = m
	}
	for name, m := range scheduler.Mutators() {
		playMutators[name] = m
	}
	playRegistry := mutation.NewRegistry().
		Register(playMutators,
			rooms.Gate(model.RoomTypePlay),
			activity.Middleware(scheduler.OnMembershipChange),
		).
		Register(mutation.Defs{"disconnect": scheduler.Disconnect},
			rooms.Gate(model.RoomTypePlay),
		)

	shareMutators := mutation.Defs{}
	if m, ok := grid.Mutators()["initClient"]; ok {
		shareMutators["initClient"] = m
	}
	shareRegistry := mutation.NewRegistry().
		Register(shareMutators, rooms.Gate(model.RoomTypeShare))

	return Registries{
		model.RoomTypeOrchestrator: orchRegistry,
		model.RoomTypePlay:         playRegistry,
		model.RoomTypeShare:        shareRegistry,
	}
}

// Resolve picks the registry for a room ID
func (r Registries) Resolve(roomID string) (*mutation.Registry, bool) {
	t, ok := rooms.TypeForRoomID(roomID)
	if !ok {
		return nil, false
	}
	reg, ok := r[t]
	return reg, ok
}
