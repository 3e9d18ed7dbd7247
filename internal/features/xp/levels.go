package xp

// LevelThresholds — минимальный total XP для уровней 0..9.
var LevelThresholds = []int64{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// LevelFor возвращает индекс старшего порога, не превышающего xp.
func LevelFor(xp int64) int {
	level := 0
	for i, threshold := range LevelThresholds {
		if xp >= threshold {
			level = i
		}
	}
	return level
}

// NextThreshold — порог следующего уровня; ok=false на последнем.
func NextThreshold(xp int64) (threshold int64, ok bool) {
	next := LevelFor(xp) + 1
	if next >= len(LevelThresholds) {
		return 0, false
	}
	return LevelThresholds[next], true
}
