package common

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if dec.More() {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

var codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ExtractJSONObject 從模型輸出中取出第一個 JSON 物件（去除 ``` 區塊與前後說明文字）
func ExtractJSONObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}

// ParseLooseJSON 先嘗試標準解析，失敗時補上鍵的雙引號再解析一次
func ParseLooseJSON(raw string, v interface{}) error {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := ParseJSON(obj, v); err == nil {
		return nil
	}
	return ParseJSON(QuoteJSONKeys(obj), v)
}
