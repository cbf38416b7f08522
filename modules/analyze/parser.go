package analyze

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoItems - 응답에서 항목을 찾지 못함
var ErrNoItems = errors.New("no clothing items in analysis result")

// Item - 분석된 의류 항목
type Item struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

var (
	arrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
	objectPattern = regexp.MustCompile(`\{[^{}]*\}`)
)

// ParseItems - 엄격한 JSON → 첫 [...] 블록 → 개별 {...} 객체 순으로 추출
func ParseItems(text string) ([]Item, error) {
	text = strings.TrimSpace(text)

	if items, ok := decodeStrict(text); ok {
		return items, nil
	}

	if block := arrayPattern.FindString(text); block != "" {
		if items, ok := decodeStrict(block); ok {
			return items, nil
		}
	}

	var items []Item
	for _, obj := range objectPattern.FindAllString(text, -1) {
		var item Item
		if err := json.Unmarshal([]byte(obj), &item); err != nil {
			continue
		}
		if item, ok := normalize(item); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// decodeStrict - 배열 또는 {"items": [...]}
func decodeStrict(text string) ([]Item, bool) {
	var list []Item
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		var wrapped struct {
			Items []Item `json:"items"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil || wrapped.Items == nil {
			return nil, false
		}
		list = wrapped.Items
	}

	items := make([]Item, 0, len(list))
	for _, item := range list {
		if item, ok := normalize(item); ok {
			items = append(items, item)
		}
	}
	return items, true
}

func normalize(item Item) (Item, bool) {
	item.Type = strings.ToLower(strings.TrimSpace(item.Type))
	item.Query = strings.TrimSpace(item.Query)
	if item.Query == "" {
		return item, false
	}
	if item.Type == "" {
		item.Type = "item"
	}
	return item, true
}
