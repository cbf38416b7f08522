package prompt

import (
	"regexp"
	"strings"
)

// bannedVocabulary - 이미지 모델이 민감하게 반응하는 단어 → 중립적인 패션 용어
var bannedVocabulary = []struct {
	word        string
	replacement string
}{
	{"see-through", "lightweight"},
	{"transparent", "sheer-look"},
	{"lingerie", "loungewear"},
	{"underwear", "innerwear"},
	{"bikini", "two-piece swimwear"},
	{"cleavage", "neckline"},
	{"revealing", "fashion-forward"},
	{"seductive", "confident"},
	{"provocative", "bold"},
	{"sexy", "stylish"},
	{"sensual", "elegant"},
	{"naked", "bare-shouldered"},
	{"nude", "neutral-toned"},
	{"topless", "off-shoulder"},
	{"skin-tight", "body-contouring"},
	{"busty", "curvy"},
	{"child", "young adult"},
	{"teen", "young adult"},
	{"schoolgirl", "preppy"},
}

// brandNames - 프롬프트에서 제거할 상표명
var brandNames = []string{
	"louis vuitton", "yves saint laurent", "saint laurent", "calvin klein", "ralph lauren",
	"tommy hilfiger", "the north face", "new balance", "under armour", "dolce & gabbana",
	"nike", "adidas", "gucci", "chanel", "prada", "hermes", "hermès", "dior", "balenciaga",
	"burberry", "versace", "fendi", "givenchy", "zara", "uniqlo", "h&m", "levi's", "levis",
	"puma", "reebok", "supreme", "off-white", "moncler", "celine", "valentino", "armani",
	"lululemon", "patagonia", "converse", "vans", "fila",
}

var (
	vocabularyPatterns []*regexp.Regexp
	brandPattern       *regexp.Regexp
	multiSpace         = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct   = regexp.MustCompile(`\s+([,.;:!?])`)
)

func init() {
	for _, v := range bannedVocabulary {
		vocabularyPatterns = append(vocabularyPatterns,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(v.word)+`s?\b`))
	}

	quoted := make([]string, 0, len(brandNames))
	for _, b := range brandNames {
		quoted = append(quoted, regexp.QuoteMeta(b))
	}
	// 상표명 뒤 소유격 's 와 ® ™ 기호까지 함께 제거
	brandPattern = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(` + strings.Join(quoted, "|") + `)('s)?[®™]?($|[^\p{L}\p{N}])`)
}

// SanitizeVocabulary - 민감 표현 치환 + 상표명 제거
func SanitizeVocabulary(text string) string {
	if text == "" {
		return text
	}
	for i, re := range vocabularyPatterns {
		text = re.ReplaceAllString(text, bannedVocabulary[i].replacement)
	}
	return StripBrands(text)
}

// StripBrands - 상표명 제거
func StripBrands(text string) string {
	// 연속 매칭 시 구분자를 공유하므로 더 이상 바뀌지 않을 때까지 반복
	for i := 0; i < 4; i++ {
		next := brandPattern.ReplaceAllString(text, "$1$4")
		if next == text {
			break
		}
		text = next
	}
	text = multiSpace.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
