// City description loading. The external format wraps the tile matrix in a
// "data" envelope: {"data": {"width": W, "height": H, "tiles": [["C","B",...], ...]}}.
// A bare {"tiles": ...} object is accepted too.
package world

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type cityDescription struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Tiles  [][]string `json:"tiles"`
}

// LoadCity parses a city description into a Grid.
func LoadCity(r io.Reader) (*Grid, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read city: %w", err)
	}

	var envelope struct {
		Data *cityDescription `json:"data"`
		cityDescription
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse city: %w", err)
	}

	desc := envelope.cityDescription
	if envelope.Data != nil {
		desc = *envelope.Data
	}
	if len(desc.Tiles) == 0 {
		return nil, ErrEmptyMap
	}

	rows := make([][]Tile, len(desc.Tiles))
	for y, codes := range desc.Tiles {
		row := make([]Tile, len(codes))
		for x, code := range codes {
			t, err := ParseTile(code)
			if err != nil {
				return nil, fmt.Errorf("tile (%d,%d): %w", x, y, err)
			}
			row[x] = t
		}
		rows[y] = row
	}

	g, err := NewGrid(rows)
	if err != nil {
		return nil, err
	}
	if desc.Width != 0 && desc.Width != g.Width() || desc.Height != 0 && desc.Height != g.Height() {
		return nil, fmt.Errorf("city declares %dx%d but tiles are %dx%d",
			desc.Width, desc.Height, g.Width(), g.Height())
	}
	return g, nil
}

// LoadCityFile opens and parses a city description from disk.
func LoadCityFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open city: %w", err)
	}
	defer f.Close()
	return LoadCity(f)
}

// ParseRows builds a grid from compact string rows such as "CCPB".
// Handy for tests and small hand-written maps.
func ParseRows(rows ...string) (*Grid, error) {
	tiles := make([][]Tile, len(rows))
	for y, row := range rows {
		tiles[y] = make([]Tile, len(row))
		for x, ch := range row {
			t, err := ParseTile(string(ch))
			if err != nil {
				return nil, fmt.Errorf("tile (%d,%d): %w", x, y, err)
			}
			tiles[y][x] = t
		}
	}
	return NewGrid(tiles)
}

// MustParseRows is ParseRows that panics on error. Test helper only.
func MustParseRows(rows ...string) *Grid {
	g, err := ParseRows(rows...)
	if err != nil {
		panic(err)
	}
	return g
}
