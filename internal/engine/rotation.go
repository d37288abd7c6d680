package engine

// MapRotation is the order maps are played in; round n plays
// MapRotation[(n-1) % len].
var MapRotation = []string{"map", "map2", "map3", "village"}

func MapForRound(n int) string {
	if n < 1 {
		n = 1
	}
	return MapRotation[(n-1)%len(MapRotation)]
}
