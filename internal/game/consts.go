package game

import "time"

const (
	RoomMaxPlayers = 2

	DefaultGridW = 80
	DefaultGridH = 45
	MinGridW     = 24
	MinGridH     = 18

	SyncInterval = 50 * time.Millisecond  // scheduler tick, 20Hz
	AIInterval   = 100 * time.Millisecond // enemy pass, 10Hz

	MaxPlayerIDLen   = 32
	MaxPlayerNameLen = 24
	MaxRoomKeyLen    = 32
	DefaultName      = "Anon"
)

// Terrain stamping.
const (
	DuneArea       = 700 // one dune per this many cells
	BumpArea       = 500
	MinDunes       = 6
	MinBumps       = 8
	SpawnClearR    = 4
	SpawnInset     = 4
	LOSStep        = 0.12
	ClampMargin    = 0.2
	DefaultSpawnXY = SpawnInset + 0.5
)

// Mission tuning.
const (
	RallyRadius       = 1.25
	SpawnScatter      = 6.5
	SpawnResamples    = 12
	MinEnemies        = 2
	MaxEnemies        = 7
	MinCollectibles   = 1
	MaxCollectibles   = 6
	DestroyChance     = 0.5
	EliteHP           = 10
	DefaultHitDamage  = 1
	MissionSeedSalt   = 0x6d697373
	EnemyAISeedSalt   = 0x9e3779b9
	NarratorSecured   = "Area secured. Regroup at the next rally point."
	NarratorRecovered = "Data recovered. Regroup at the next rally point."
	NarratorHostiles  = "Hostiles inbound. Clear the area."
	NarratorDataNodes = "Data nodes detected nearby. Recover them."
)

// Enemy AI tuning, distances in grid units and times in seconds.
const (
	MeleeRange       = 0.9
	ZapMinRange      = 2.0
	ZapMaxRange      = 7.0
	MeleeCooldownMin = 0.65
	MeleeCooldownMax = 0.90
	ZapCooldownMin   = 1.10
	ZapCooldownMax   = 1.55
	FleeNearRange    = 3.0
	FleeHPFraction   = 1.0 / 3.0
	SkirmishMinRange = 2.5
	SkirmishMaxRange = 4.5
	SkirmishFleeOdds = 0.35
	StrafeWeight     = 0.6
	StrafeFlipOdds   = 0.25
	StuckFlipAfter   = 3
)
