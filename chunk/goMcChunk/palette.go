package goMcChunk

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/level/block"
	"github.com/Tnze/go-mc/save"
)

var ErrBrokenPalette = errors.New("broken section palette")

// LoadColors reads a gob encoded []color.RGBA64 indexed by block state id.
func LoadColors(path string) ([]color.RGBA64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeColors(b)
}

func DecodeColors(b []byte) ([]color.RGBA64, error) {
	var colors []color.RGBA64
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&colors); err != nil {
		return nil, err
	}
	return colors, nil
}

func EncodeColors(colors []color.RGBA64) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(colors); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func prepareSectionBlockstates(s *save.Section) (*level.PaletteContainer[block.StateID], error) {
	statePalette := s.BlockStates.Palette
	stateRawPalette := make([]block.StateID, len(statePalette))
	for i, v := range statePalette {
		b, ok := block.FromID[v.Name]
		if !ok {
			b, ok = block.FromID["minecraft:"+v.Name]
			if !ok {
				return nil, fmt.Errorf("%w: unknown block [%v]", ErrBrokenPalette, v.Name)
			}
		}
		if v.Properties.Data != nil {
			err := v.Properties.Unmarshal(&b)
			if err != nil {
				return nil, fmt.Errorf("%w: properties of [%v]: %v", ErrBrokenPalette, v.Name, err)
			}
		}
		stateRawPalette[i] = block.ToStateID[b]
	}
	return level.NewStatesPaletteContainerWithData(16*16*16, s.BlockStates.Data, stateRawPalette), nil
}

// nibble reads a 4 bit light value from packed section light data.
func nibble(arr []byte, x, y, z int) int {
	idx := (y&15)<<8 | z<<4 | x
	b := arr[idx>>1]
	if idx&1 == 1 {
		return int(b >> 4)
	}
	return int(b & 0x0f)
}
