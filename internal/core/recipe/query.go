package recipe

import (
	"fmt"
	"math"
	"strings"
)

// BuildQuery 組合檢索字串，例如 "vegan recipe with 500 calories"
func BuildQuery(preference string, calories float64) string {
	return strings.TrimSpace(fmt.Sprintf("%s recipe with %d calories",
		strings.TrimSpace(preference), int64(math.Round(calories))))
}
