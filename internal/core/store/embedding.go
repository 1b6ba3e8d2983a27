package store

import (
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	pgvector "github.com/pgvector/pgvector-go"
)

// EmbeddingDims 向量維度，需與欄位型別 vector(64) 一致
const EmbeddingDims = 64

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "for": {}, "with": {},
	"in": {}, "on": {}, "to": {}, "recipe": {}, "recipes": {}, "calories": {}, "kcal": {},
}

// Tokenize 轉小寫後以非字母切分，去除停用字與單一字元
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Embed 以雜湊詞袋產生固定維度的單位向量，相同文字永遠得到相同結果
func Embed(text string) pgvector.Vector {
	vec := make([]float32, EmbeddingDims)
	for _, tok := range Tokenize(text) {
		h := xxhash.Sum64String(tok)
		sign := float32(1)
		if h>>63 == 1 {
			sign = -1
		}
		vec[h%EmbeddingDims] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return pgvector.NewVector(vec)
}
