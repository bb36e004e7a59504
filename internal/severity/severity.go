package severity

import (
	"fmt"
	"strings"
)

type Level string

const (
	Critical Level = "critical"
	Warning  Level = "warning"
	Info     Level = "info"
)

// All lists the levels from most to least urgent.
var All = []Level{Critical, Warning, Info}

var order = map[Level]int{
	Info:     1,
	Warning:  2,
	Critical: 3,
}

func Normalize(level string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(level)))
	if _, ok := order[l]; !ok {
		return "", fmt.Errorf("invalid severity level: %s", level)
	}
	return l, nil
}

// ParseList parses a comma separated list such as "critical,warning".
func ParseList(s string) ([]Level, error) {
	var out []Level
	seen := map[Level]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := Normalize(part)
		if err != nil {
			return nil, err
		}
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out, nil
}

func MeetsOrAbove(level Level, threshold Level) bool {
	l, okL := order[level]
	t, okT := order[threshold]
	if !okL || !okT {
		return false
	}
	return l >= t
}

func Max(levels ...Level) Level {
	maxRank := 0
	var maxLevel Level
	for _, l := range levels {
		r := order[l]
		if r > maxRank {
			maxRank = r
			maxLevel = l
		}
	}
	return maxLevel
}
