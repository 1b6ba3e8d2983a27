package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

type candidateKey struct {
	Query        string   `json:"q"`
	Count        int      `json:"n"`
	Preferences  []string `json:"p"`
	Restrictions []string `json:"r"`
}

// CandidateKey 產生候選查詢的快取鍵，清單參數的順序與大小寫不影響結果
func CandidateKey(query string, count int, preferences, restrictions []string) string {
	payload, _ := json.Marshal(candidateKey{
		Query:        strings.TrimSpace(query),
		Count:        count,
		Preferences:  canonicalList(preferences),
		Restrictions: canonicalList(restrictions),
	})
	return hashString(string(payload))
}

func canonicalList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// hashString 計算字符串的 SHA-256 哈希值
func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
