package game

import (
	"fmt"
	"math/rand"
)

// EnemyArchetype describes one hostile variant a destroy phase can spawn.
type EnemyArchetype struct {
	ID          string
	HP          int
	Speed       float64 // grid units per second
	Skirmish    bool    // keeps medium range and strafes
	ZapNeedsLOS bool
	MeleeDamage int
	ZapDamage   int
}

// WeightedArchetype pairs an archetype with a spawn weight.
type WeightedArchetype struct {
	ArchetypeID string
	Weight      int
}

// ArchetypeRegistry holds every enemy variant keyed by identifier.
var ArchetypeRegistry = map[string]EnemyArchetype{
	"grunt": {
		ID:          "grunt",
		HP:          2,
		Speed:       1.6,
		ZapNeedsLOS: true,
		MeleeDamage: 1,
		ZapDamage:   1,
	},
	"skirmisher": {
		ID:          "skirmisher",
		HP:          3,
		Speed:       2.0,
		Skirmish:    true,
		ZapNeedsLOS: true,
		MeleeDamage: 1,
		ZapDamage:   1,
	},
	"elite": {
		ID:          "elite",
		HP:          EliteHP,
		Speed:       1.2,
		ZapNeedsLOS: false,
		MeleeDamage: 2,
		ZapDamage:   2,
	},
}

// DestroySpawnTable is the weighted pick list used when entering destroy.
var DestroySpawnTable = []WeightedArchetype{
	{ArchetypeID: "grunt", Weight: 45},
	{ArchetypeID: "skirmisher", Weight: 40},
	{ArchetypeID: "elite", Weight: 15},
}

// GetArchetype retrieves an archetype by ID.
func GetArchetype(id string) (*EnemyArchetype, error) {
	a, ok := ArchetypeRegistry[id]
	if !ok {
		return nil, fmt.Errorf("enemy archetype not found: %s", id)
	}
	return &a, nil
}

// PickArchetype draws one archetype from the weighted table.
func PickArchetype(table []WeightedArchetype, rng *rand.Rand) (*EnemyArchetype, error) {
	total := 0
	for _, w := range table {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	if total <= 0 {
		return nil, fmt.Errorf("spawn table has no positive weights")
	}
	roll := rng.Intn(total)
	for _, w := range table {
		if w.Weight <= 0 {
			continue
		}
		if roll < w.Weight {
			return GetArchetype(w.ArchetypeID)
		}
		roll -= w.Weight
	}
	return GetArchetype(table[len(table)-1].ArchetypeID)
}
