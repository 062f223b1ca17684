// Package grid holds the play room's cell and client records.
package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"gridloop/internal/colors"
	"gridloop/internal/model"
	"gridloop/internal/mutation"
)

const (
	// Size is the grid's width and height
	Size     = 8
	NumCells = Size * Size

	cellPrefix   = "cell/"
	clientPrefix = "client/"

	fallbackColor = "pink"
)

// IndexToID formats a cell index as its two-digit ID
func IndexToID(i int) string {
	return fmt.Sprintf("%02d", i)
}

// CoordsToID returns the ID of the cell at column x, row y
func CoordsToID(x, y int) string {
	return IndexToID(x + y*Size)
}

// IDToCoords returns the column and row of a cell ID
func IDToCoords(id string) (int, int, bool) {
	i, ok := cellIndex(id)
	if !ok {
		return 0, 0, false
	}
	return i % Size, i / Size, true
}

func cellIndex(id string) (int, bool) {
	if len(id) != 2 {
		return 0, false
	}
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= NumCells {
		return 0, false
	}
	return i, true
}

// GetClient loads a client record, nil if absent
func GetClient(ctx context.Context, tx mutation.ReadTransaction, clientID string) (*model.Client, error) {
	var c model.Client
	ok, err := tx.Get(ctx, clientPrefix+clientID, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// ListCells returns the enabled cells keyed by cell ID
func ListCells(ctx context.Context, tx mutation.ReadTransaction) (map[string]model.Cell, error) {
	raw, err := tx.Scan(ctx, cellPrefix)
	if err != nil {
		return nil, err
	}
	cells := make(map[string]model.Cell, len(raw))
	for _, v := range raw {
		var c model.Cell
		if err := json.Unmarshal(v, &c); err != nil {
			return nil, fmt.Errorf("decode cell: %w", err)
		}
		cells[c.ID] = c
	}
	return cells, nil
}

// InitClientArgs are the arguments of initClient
type InitClientArgs struct {
	Color string `json:"color"`
}

// InitClient stores the caller's record with its assigned colour
func InitClient(ctx context.Context, tx mutation.WriteTransaction, args InitClientArgs) error {
	if !colors.Valid(args.Color) {
		return nil
	}
	return tx.Set(ctx, clientPrefix+tx.ClientID(), &model.Client{
		ID:    tx.ClientID(),
		Color: args.Color,
	})
}

// SetCellEnabledArgs are the arguments of setCellEnabled
type SetCellEnabledArgs struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// SetCellEnabled paints a cell with the caller's colour or clears it.
// An enabled cell keeps the colour of whoever enabled it first.
func SetCellEnabled(ctx context.Context, tx mutation.WriteTransaction, args SetCellEnabledArgs) error {
	if _, ok := cellIndex(args.ID); !ok {
		return nil
	}
	if !args.Enabled {
		return tx.Del(ctx, cellPrefix+args.ID)
	}
	exists, err := tx.Has(ctx, cellPrefix+args.ID)
	if err != nil || exists {
		return err
	}
	color := fallbackColor
	client, err := GetClient(ctx, tx, tx.ClientID())
	if err != nil {
		return err
	}
	if client != nil {
		color = client.Color
	}
	return tx.Set(ctx, cellPrefix+args.ID, &model.Cell{ID: args.ID, Color: color})
}

// Mutators returns the grid mutators. They run on both client and server.
func Mutators() mutation.Defs {
	return mutation.Defs{
		"initClient": func(ctx context.Context, tx mutation.WriteTransaction, raw json.RawMessage) error {
			var args InitClientArgs
			if err := mutation.DecodeArgs(raw, &args); err != nil {
				return err
			}
			return InitClient(ctx, tx, args)
		},
		"setCellEnabled": func(ctx context.Context, tx mutation.WriteTransaction, raw json.RawMessage) error {
			var args SetCellEnabledArgs
			if err := mutation.DecodeArgs(raw, &args); err != nil {
				return err
			}
			return SetCellEnabled(ctx, tx, args)
		},
	}
}
