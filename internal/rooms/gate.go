package rooms

import (
	"context"
	"encoding/json"
	"log"

	"gridloop/internal/model"
	"gridloop/internal/mutation"
)

// AllowedFor reports whether tx may run a mutator restricted to types.
// Speculative runs are always allowed; the server decides.
func AllowedFor(tx mutation.WriteTransaction, types ...model.RoomType) bool {
	if !tx.IsAuthoritative() {
		return true
	}
	roomType, ok := TypeForRoomID(tx.RoomID())
	if !ok {
		return false
	}
	for _, t := range types {
		if t == roomType {
			return true
		}
	}
	return false
}

// Gate skips wrapped mutators when the room is not one of types
func Gate(types ...model.RoomType) mutation.Middleware {
	return func(name string, next mutation.Mutator) mutation.Mutator {
		return func(ctx context.Context, tx mutation.WriteTransaction, args json.RawMessage) error {
			if !AllowedFor(tx, types...) {
				log.Printf("Not allowing %s in room %s", name, tx.RoomID())
				return nil
			}
			return next(ctx, tx, args)
		}
	}
}
