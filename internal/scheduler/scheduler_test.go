package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gridloop/internal/activity"
	"gridloop/internal/model"
	"gridloop/internal/mutation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base sits on a loop boundary
const base int64 = 1_700_000_000_000

const testRoom = "play_i0_d"

type playRoom struct {
	t        *testing.T
	store    *mutation.MemoryStore
	registry *mutation.Registry
}

func newPlayRoom(t *testing.T) *playRoom {
	registry := mutation.NewRegistry().
		Register(Mutators(), activity.Middleware(OnMembershipChange)).
		Register(mutation.Defs{
			"touch": func(context.Context, mutation.WriteTransaction, json.RawMessage) error { return nil },
		}, activity.Middleware(OnMembershipChange)).
		Register(mutation.Defs{"disconnect": Disconnect})
	return &playRoom{t: t, store: mutation.NewMemoryStore(), registry: registry}
}

func (p *playRoom) run(clientID, name string, at int64) {
	p.t.Helper()
	m, ok := p.registry.Lookup(name)
	require.True(p.t, ok)
	ctx := context.Background()
	tx := mutation.Begin(p.store, testRoom, clientID, mutation.LocationServer, time.UnixMilli(at))
	require.NoError(p.t, m(ctx, tx, nil))
	require.NoError(p.t, tx.Commit(ctx))
}

func (p *playRoom) game() *model.Game {
	p.t.Helper()
	tx := mutation.Begin(p.store, testRoom, "", mutation.LocationServer, time.UnixMilli(base))
	g, err := GetGame(context.Background(), tx)
	require.NoError(p.t, err)
	return g
}

func TestNextLoopStartTime(t *testing.T) {
	loop := LoopLength.Milliseconds()
	assert.Equal(t, base, NextLoopStartTime(base))
	assert.Equal(t, base+loop, NextLoopStartTime(base+1))
	assert.Equal(t, base+loop, NextLoopStartTime(base+loop-1))
	assert.Equal(t, int64(0), NextLoopStartTime(0))
}

func TestCurrentRow(t *testing.T) {
	loop := LoopLength.Milliseconds()
	start := base + loop

	row, ok := CurrentRow(start, base)
	assert.True(t, ok)
	assert.Equal(t, -1, row)

	row, ok = CurrentRow(start, start)
	assert.True(t, ok)
	assert.Equal(t, 0, row)

	row, ok = CurrentRow(start, start+2*loop+500)
	assert.True(t, ok)
	assert.Equal(t, 2, row)

	_, ok = CurrentRow(start, start+GameLength.Milliseconds()+1)
	assert.False(t, ok)
}

func TestTile(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C", "A", "B"}, Tile([]string{"A", "B", "C"}))
	assert.Equal(t, make([]string, Rows), Tile(nil))
}

func TestStartGame(t *testing.T) {
	p := newPlayRoom(t)
	p.run("A", "touch", base)
	p.run("B", "touch", base)
	p.run("A", "startGame", base+500)

	g := p.game()
	require.NotNil(t, g)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, base+LoopLength.Milliseconds(), g.StartTime)
	assert.Equal(t, []string{"A", "B", "A", "B", "A", "B", "A", "B"}, g.RowAssignments)

	t.Run("live game is kept", func(t *testing.T) {
		p.run("B", "startGame", base+1000)
		assert.Equal(t, g.ID, p.game().ID)
	})

	t.Run("expired game is replaced", func(t *testing.T) {
		later := g.StartTime + GameLength.Milliseconds() + 1
		p.run("A", "startGame", later)
		next := p.game()
		assert.NotEqual(t, g.ID, next.ID)
		assert.Equal(t, []string{"A", "A", "A", "A", "A", "A", "A", "A"}, next.RowAssignments)
		assert.Zero(t, next.StartTime%LoopLength.Milliseconds())
	})

	t.Run("speculative run writes nothing", func(t *testing.T) {
		fresh := newPlayRoom(t)
		ctx := context.Background()
		tx := mutation.Begin(fresh.store, testRoom, "A", mutation.LocationClient, time.UnixMilli(base))
		require.NoError(t, StartGame(ctx, tx))
		require.NoError(t, tx.Commit(ctx))
		assert.Nil(t, fresh.game())
	})
}

func TestMembershipSwapDuringGame(t *testing.T) {
	p := newPlayRoom(t)
	for _, id := range []string{"A", "B", "C"} {
		p.run(id, "touch", base)
	}
	p.run("A", "startGame", base)
	g := p.game()
	require.Equal(t, []string{"A", "B", "C", "A", "B", "C", "A", "B"}, g.RowAssignments)

	// keep everybody active up to B's last interaction
	for at := base + 1000; at <= base+21000; at += 1000 {
		for _, id := range []string{"A", "B", "C"} {
			p.run(id, "touch", at)
		}
	}
	p.run("A", "touch", base+24000)
	p.run("C", "touch", base+24000)

	// row 2 is playing; B has been idle for 3.5s when D arrives
	now := g.StartTime + 2*LoopLength.Milliseconds() + 500
	require.Equal(t, base+24500, now)
	p.run("D", "touch", now)

	after := p.game()
	assert.Equal(t, g.ID, after.ID)
	assert.Equal(t, []string{"A", "B", "C", "A", "D", "C", "A", "D"}, after.RowAssignments)
}

func TestMembershipChangeIgnoredOutsideTheFuture(t *testing.T) {
	ctx := context.Background()
	rows := []string{"A", "B", "C", "A", "B", "C", "A", "B"}
	change := activity.Change{Removed: []string{"B"}, Active: []string{"A", "C"}}

	for name, at := range map[string]int64{
		"last row":     base + 7*LoopLength.Milliseconds() + 10,
		"expired game": base + GameLength.Milliseconds() + 10,
	} {
		t.Run(name, func(t *testing.T) {
			store := mutation.NewMemoryStore()
			seed := mutation.Begin(store, testRoom, "", mutation.LocationServer, time.UnixMilli(base))
			require.NoError(t, seed.Set(ctx, gameKey, &model.Game{ID: "g1", StartTime: base, RowAssignments: rows}))
			require.NoError(t, seed.Commit(ctx))

			tx := mutation.Begin(store, testRoom, "A", mutation.LocationServer, time.UnixMilli(at))
			require.NoError(t, OnMembershipChange(ctx, tx, change))
			g, err := GetGame(ctx, tx)
			require.NoError(t, err)
			assert.Equal(t, rows, g.RowAssignments)
		})
	}
}

func TestLastClientLeavingEndsGame(t *testing.T) {
	p := newPlayRoom(t)
	p.run("A", "touch", base)
	p.run("A", "startGame", base)
	first := p.game()
	require.NotNil(t, first)

	p.run("A", "disconnect", base+2000)
	assert.Nil(t, p.game())

	p.run("A", "startGame", base+3000)
	second := p.game()
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, Tile([]string{"A"}), second.RowAssignments)
}

func TestIdleClientsTimeOutOfTheGame(t *testing.T) {
	p := newPlayRoom(t)
	p.run("A", "touch", base)
	p.run("B", "touch", base)
	p.run("A", "startGame", base)

	for at := base + 1000; at <= base+14000; at += 1000 {
		p.run("A", "touch", at)
		p.run("B", "touch", at)
	}
	// only A keeps interacting; B ages out while row 1 is playing
	for at := base + 15000; at <= base+18000; at += 1000 {
		p.run("A", "touch", at)
	}

	g := p.game()
	assert.Equal(t, []string{"A", "B", "A", "A", "A", "A", "A", "A"}, g.RowAssignments)
}
