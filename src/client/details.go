package client

import (
	"encoding/json"
	"fmt"

	"github.com/stake-plus/legal-agent/src/agents/core"
)

// Details collects additional details in the order they are set. The first
// encoding error is reported by Query.
type Details struct {
	list core.Details
	err  error
}

func NewDetails() *Details {
	return &Details{}
}

// Set adds key or replaces its value in place.
func (d *Details) Set(key string, value any) *Details {
	if d.err != nil {
		return d
	}
	raw, err := json.Marshal(value)
	if err != nil {
		d.err = fmt.Errorf("detail %q: %w", key, err)
		return d
	}
	for i := range d.list {
		if d.list[i].Key == key {
			d.list[i].Value = raw
			return d
		}
	}
	d.list = append(d.list, core.Detail{Key: key, Value: raw})
	return d
}

func (d *Details) Len() int { return len(d.list) }
