package recipe

import (
	"regexp"
	"strings"
)

var (
	ordinalPrefix = regexp.MustCompile(`^\d+\.(\s+|$)`)
	stepMarker    = regexp.MustCompile(`(?i)^step\s*\d+$`)
)

// NormalizeSteps 清理原始步驟文字：去除編號、丟棄 "STEP 3" 這類標記，
// 並把被換行切斷的句子接回同一步驟
func NormalizeSteps(raw []string) []string {
	steps := make([]string, 0, len(raw))
	var buf string

	flush := func() {
		s := strings.TrimSpace(buf)
		buf = ""
		if s == "" || stepMarker.MatchString(s) {
			return
		}
		steps = append(steps, s)
	}

	for _, chunk := range raw {
		for _, line := range strings.Split(chunk, "\n") {
			line = cleanLine(line)
			if line == "" || stepMarker.MatchString(line) {
				continue
			}

			switch {
			case buf == "":
				buf = line
			case strings.HasSuffix(buf, "."):
				flush()
				buf = line
			default:
				buf += " " + line
			}
		}
	}
	flush()

	return steps
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	for {
		loc := ordinalPrefix.FindStringIndex(line)
		if loc == nil {
			return line
		}
		line = strings.TrimSpace(line[loc[1]:])
	}
}
