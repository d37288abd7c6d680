package client

import "time"

const (
	TickDT              = 0.016 // seconds simulated per tick
	InterpolationFactor = 0.5   // share of remaining distance closed per tick
	SnapEpsilon         = 0.5   // pixels
	MissileHitRadius    = 20.0
	ObjectHitRadius     = 30.0
	TurretMissileSpeed  = 8.0
	ShotSpeed           = 10.0

	MinEffectDuration       = 0.1
	MinRemoteEffectDuration = 0.2
	ThermalBaseRadius       = 34.0
	ThermalPulseAmplitude   = 6.0
	ThermalPulseFrequency   = 5.0

	DefaultMapWidth  = 3200.0
	DefaultMapHeight = 2400.0
	MapTileSize      = 32

	StrikeWarning = 3 * time.Second
	chatHistory   = 50
)
