package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gridloop/internal/app"
	"gridloop/internal/colors"
	"gridloop/internal/config"
	"gridloop/internal/grid"
	"gridloop/internal/model"
	"gridloop/internal/mutation"
	"gridloop/internal/rooms"
)

// heart is drawn top to bottom; '#' marks an enabled cell
var heart = []string{
	"........",
	".##..##.",
	"########",
	"########",
	".######.",
	"..####..",
	"...##...",
	"........",
}

func main() {
	roomID := os.Getenv("SEED_ROOM")
	if roomID == "" {
		roomID = rooms.PublicPlayRoomID(0)
	}
	if t, ok := rooms.TypeForRoomID(roomID); !ok || t != model.RoomTypePlay {
		log.Fatalf("SEED_ROOM %q is not a play room", roomID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := app.Open(ctx, config.Load())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer a.Close()

	// seeded cells belong to a client that never heartbeats, so they
	// never count towards occupancy or the active set
	tx := mutation.Begin(a.Store, roomID, "seed", mutation.LocationServer, time.Now())
	if err := grid.InitClient(ctx, tx, grid.InitClientArgs{Color: colors.Random()}); err != nil {
		log.Fatalf("Failed to init seed client: %v", err)
	}

	enabled := 0
	for y, row := range heart {
		for x, c := range row {
			if c != '#' {
				continue
			}
			args := grid.SetCellEnabledArgs{ID: grid.CoordsToID(x, y), Enabled: true}
			if err := grid.SetCellEnabled(ctx, tx, args); err != nil {
				log.Fatalf("Failed to enable cell %s: %v", args.ID, err)
			}
			enabled++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit seed: %v", err)
	}

	fmt.Printf("Successfully seeded %d cells into room '%s'\n", enabled, roomID)
}
