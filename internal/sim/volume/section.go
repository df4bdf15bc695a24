package volume

import (
	"fmt"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
	"voxelsniper.dev/internal/sim/shape"
)

// Section is the serialized form of a Volume.
type Section struct {
	Name       string   `json:"name"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Length     int      `json:"length"`
	Origin     [3]int   `json:"origin"`
	Default    string   `json:"default"`
	Dictionary []string `json:"dictionary"`
	Occupancy  []byte   `json:"occupancy"`
	Low        []byte   `json:"low"`
	High       []byte   `json:"high,omitempty"`
}

func (s Section) Voxels() int { return s.Width * s.Height * s.Length }

func (v *Volume) Section(name string) Section {
	var occ []byte
	if m, ok := v.shp.(*shape.Mask); ok {
		occ = m.Packed()
	} else {
		occ = shape.NewMaskFrom(v.shp).Packed()
	}
	dict := make([]string, 0, v.dict.Len())
	for _, m := range v.dict.Entries() {
		dict = append(dict, string(m))
	}
	s := Section{
		Name:       name,
		Width:      v.Width(),
		Height:     v.Height(),
		Length:     v.Length(),
		Origin:     v.Origin().ToArray(),
		Default:    string(v.DefaultMaterial()),
		Dictionary: dict,
		Occupancy:  occ,
		Low:        append([]byte(nil), v.low...),
	}
	if v.width == Wide {
		s.High = append([]byte(nil), v.high...)
	}
	return s
}

// FromSection rebuilds a volume. Malformed input is reported as ErrCorrupt.
func FromSection(s Section) (*Volume, error) {
	if s.Width <= 0 || s.Height <= 0 || s.Length <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrCorrupt, s.Width, s.Height, s.Length)
	}
	if len(s.Dictionary) == 0 || s.Dictionary[0] != s.Default {
		return nil, fmt.Errorf("%w: dictionary must start with default %q", ErrCorrupt, s.Default)
	}
	if len(s.Dictionary) > wideMaxID+1 {
		return nil, fmt.Errorf("%w: %d dictionary entries", ErrCorrupt, len(s.Dictionary))
	}
	n := s.Voxels()
	if len(s.Low) != n {
		return nil, fmt.Errorf("%w: low plane has %d bytes, want %d", ErrCorrupt, len(s.Low), n)
	}
	width := Narrow
	if s.High != nil {
		width = Wide
		if len(s.High) != n {
			return nil, fmt.Errorf("%w: high plane has %d bytes, want %d", ErrCorrupt, len(s.High), n)
		}
	} else if len(s.Dictionary) > narrowMaxID+1 {
		return nil, fmt.Errorf("%w: %d materials need a high plane", ErrCorrupt, len(s.Dictionary))
	}

	mask, err := shape.MaskFromPacked(s.Width, s.Height, s.Length, mathx.FromArray(s.Origin), s.Occupancy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	dict := &Dictionary{ids: make(map[material.Material]int, len(s.Dictionary))}
	for i, name := range s.Dictionary {
		m := material.Material(name)
		if m.IsZero() {
			return nil, fmt.Errorf("%w: empty material at id %d", ErrCorrupt, i)
		}
		if _, dup := dict.ids[m]; dup {
			return nil, fmt.Errorf("%w: duplicate material %s", ErrCorrupt, m)
		}
		dict.ids[m] = i
		dict.byID = append(dict.byID, m)
	}
	v := &Volume{
		shp:   mask,
		owned: true,
		dict:  dict,
		width: width,
		low:   append([]byte(nil), s.Low...),
	}
	if width == Wide {
		v.high = append([]byte(nil), s.High...)
	}
	for i := 0; i < n; i++ {
		if id, ok := v.readID(i); ok && id >= dict.Len() {
			return nil, fmt.Errorf("%w: id %d at index %d not in dictionary", ErrCorrupt, id, i)
		}
	}
	return v, nil
}
