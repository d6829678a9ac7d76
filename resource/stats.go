// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// KindStats describes the state of one resource kind.
type KindStats struct {
	Kind Kind
	// Live counts referenced resources.
	Live int
	// Slots counts occupied slots, referenced or waiting to be destroyed.
	Slots             int
	Allocated         int
	PendingAllocation int
	PendingFree       int
	// PendingBytes sums the payloads waiting for allocation.
	PendingBytes int64
}

func (k KindStats) String() string {
	return fmt.Sprintf("%s: live=%d allocated=%d pending=%d/%d (%s)",
		k.Kind, k.Live, k.Allocated, k.PendingAllocation, k.PendingFree,
		units.HumanSize(float64(k.PendingBytes)))
}

// Stats holds one entry per kind.
type Stats []KindStats

func (s Stats) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
