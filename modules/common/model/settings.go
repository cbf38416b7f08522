package model

import (
	"sort"

	"tryon-canvas-server/modules/common/fallback"
)

// Settings - 스타일 설정 (고정 필드, 모두 선택)
type Settings struct {
	Location    string `json:"location,omitempty"`
	Weather     string `json:"weather,omitempty"`
	Season      string `json:"season,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Ethnicity   string `json:"ethnicity,omitempty"`
	Age         string `json:"age,omitempty"`
	BodyType    string `json:"bodyType,omitempty"`
	SkinTone    string `json:"skinTone,omitempty"`
	HairStyle   string `json:"hairStyle,omitempty"`
	HairColor   string `json:"hairColor,omitempty"`
	Pose        string `json:"pose,omitempty"`
	Perspective string `json:"perspective,omitempty"`
	Mood        string `json:"mood,omitempty"`
	Lighting    string `json:"lighting,omitempty"`
	Style       string `json:"style,omitempty"`
	Accessories string `json:"accessories,omitempty"`
	Makeup      string `json:"makeup,omitempty"`
	Background  string `json:"background,omitempty"`
}

// SettingEntry - 값이 채워진 설정 하나
type SettingEntry struct {
	Key   string
	Value string
}

// settingAliases - 클라이언트 버전별 키 이름 차이 흡수
var settingAliases = map[string]string{
	"cameraAngle": "perspective",
	"angle":       "perspective",
	"camera":      "perspective",
	"race":        "ethnicity",
	"skin":        "skinTone",
	"skinColor":   "skinTone",
	"hair":        "hairStyle",
	"body":        "bodyType",
	"place":       "location",
}

// SettingsFromMap - 느슨한 map 을 Settings 로 정규화 (알 수 없는 키는 무시)
// 원래 키가 별칭보다 우선, 별칭끼리는 이름순
func SettingsFromMap(raw map[string]interface{}) Settings {
	var s Settings
	var aliases []string
	for key, value := range raw {
		if _, ok := settingAliases[key]; ok {
			aliases = append(aliases, key)
			continue
		}
		if field := s.field(key); field != nil {
			*field = fallback.Stringify(value)
		}
	}

	sort.Strings(aliases)
	for _, key := range aliases {
		field := s.field(settingAliases[key])
		if field == nil || *field != "" {
			continue
		}
		*field = fallback.Stringify(raw[key])
	}
	return s
}

func (s *Settings) field(key string) *string {
	switch key {
	case "location":
		return &s.Location
	case "weather":
		return &s.Weather
	case "season":
		return &s.Season
	case "gender":
		return &s.Gender
	case "ethnicity":
		return &s.Ethnicity
	case "age":
		return &s.Age
	case "bodyType":
		return &s.BodyType
	case "skinTone":
		return &s.SkinTone
	case "hairStyle":
		return &s.HairStyle
	case "hairColor":
		return &s.HairColor
	case "pose":
		return &s.Pose
	case "perspective":
		return &s.Perspective
	case "mood":
		return &s.Mood
	case "lighting":
		return &s.Lighting
	case "style":
		return &s.Style
	case "accessories":
		return &s.Accessories
	case "makeup":
		return &s.Makeup
	case "background":
		return &s.Background
	}
	return nil
}

// Entries - 채워진 설정을 선언 순서대로 반환
func (s Settings) Entries() []SettingEntry {
	all := []SettingEntry{
		{"location", s.Location},
		{"weather", s.Weather},
		{"season", s.Season},
		{"gender", s.Gender},
		{"ethnicity", s.Ethnicity},
		{"age", s.Age},
		{"bodyType", s.BodyType},
		{"skinTone", s.SkinTone},
		{"hairStyle", s.HairStyle},
		{"hairColor", s.HairColor},
		{"pose", s.Pose},
		{"perspective", s.Perspective},
		{"mood", s.Mood},
		{"lighting", s.Lighting},
		{"style", s.Style},
		{"accessories", s.Accessories},
		{"makeup", s.Makeup},
		{"background", s.Background},
	}
	out := all[:0]
	for _, e := range all {
		if e.Value != "" {
			out = append(out, e)
		}
	}
	return out
}
