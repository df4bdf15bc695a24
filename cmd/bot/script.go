package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelsniper.dev/internal/protocol"
)

// Script is a list of commands played in order. A step with Wait set to
// "edit" blocks until the server reports a finished edit.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Wait string `yaml:"wait"`

	Type     string   `yaml:"type"`
	Brush    string   `yaml:"brush"`
	Material string   `yaml:"material"`
	Size     *float64 `yaml:"size"`
	Key      string   `yaml:"key"`
	Value    string   `yaml:"value"`
	Target   []int    `yaml:"target"`
	N        int      `yaml:"n"`
	Section  string   `yaml:"section"`
}

const defaultScript = `
name: bot
steps:
  - {type: BRUSH, brush: ball material}
  - {type: MATERIAL, material: STONE}
  - {type: SIZE, size: 2}
  - {type: SNIPE, target: [0, 24, 0]}
  - {wait: edit}
  - {type: SAVE_SECTION, section: bot_ball}
  - {type: BRUSH, brush: ball blend}
  - {type: SET_VAR, key: kernel, value: ball}
  - {type: SNIPE, target: [0, 24, 0]}
  - {wait: edit}
  - {type: UNDO, n: 2}
  - {wait: edit}
`

func LoadScript(path string) (Script, error) {
	var s Script
	b := []byte(defaultScript)
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return s, err
		}
		b = raw
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("decode script: %w", err)
	}
	for i, st := range s.Steps {
		if st.Wait == "" && st.Type == "" {
			return s, fmt.Errorf("step %d: missing type", i)
		}
		if st.Wait != "" && st.Wait != "edit" {
			return s, fmt.Errorf("step %d: unknown wait %q", i, st.Wait)
		}
		if st.Target != nil && len(st.Target) != 3 {
			return s, fmt.Errorf("step %d: target needs 3 coordinates", i)
		}
	}
	return s, nil
}

// Command converts a non-wait step into a protocol command.
func (st Step) Command(id string) protocol.CommandReq {
	c := protocol.CommandReq{
		ID:       id,
		Type:     strings.ToUpper(st.Type),
		Brush:    st.Brush,
		Material: st.Material,
		Size:     st.Size,
		Key:      st.Key,
		Value:    st.Value,
		N:        st.N,
		Name:     st.Section,
	}
	if len(st.Target) == 3 {
		t := [3]int{st.Target[0], st.Target[1], st.Target[2]}
		c.Target = &t
	}
	return c
}
