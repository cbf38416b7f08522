package prompt

import (
	"log"
	"strings"
)

// ContentAdvisory - 생성된 프롬프트 검토 (현재는 로그 전용, 결과를 바꾸지 않음)
type ContentAdvisory interface {
	Review(text string) []string
}

// LexicalAdvisory - 금지 문자열 포함 여부 검사
type LexicalAdvisory struct {
	Terms []string
}

// refusalMarkers - 모델이 지시를 무시하고 거절/설명문을 반환한 흔적
var refusalMarkers = []string{
	"i'm sorry",
	"i am sorry",
	"i cannot",
	"i can't",
	"as an ai",
	"here is the prompt",
	"here's the prompt",
}

// NewLexicalAdvisory - 금지어 + 상표명 + 거절 문구
func NewLexicalAdvisory() *LexicalAdvisory {
	terms := make([]string, 0, len(bannedVocabulary)+len(brandNames)+len(refusalMarkers))
	for _, v := range bannedVocabulary {
		terms = append(terms, v.word)
	}
	terms = append(terms, brandNames...)
	terms = append(terms, refusalMarkers...)
	return &LexicalAdvisory{Terms: terms}
}

// Review - 발견된 금지 문자열 목록
func (a *LexicalAdvisory) Review(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range a.Terms {
		if containsWord(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

// containsWord - 단어 경계 기준 포함 여부
func containsWord(text, term string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		if (idx == 0 || !isWordByte(text[idx-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// logAdvisory - 검토 결과 경고 로그
func logAdvisory(advisory ContentAdvisory, text string) {
	if advisory == nil {
		return
	}
	if found := advisory.Review(text); len(found) > 0 {
		log.Printf("⚠️  [Prompt] Content advisory: synthesized prompt contains %v", found)
	}
}
