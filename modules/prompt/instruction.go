package prompt

import (
	"fmt"
	"strings"

	"tryon-canvas-server/modules/common/model"
)

// Images - 프롬프트 합성에 쓰이는 참조 이미지 (빈 값은 생략)
type Images struct {
	// Composite - 합성 이미지 (있으면 Model/Product 대신 첨부)
	Composite       model.ReferenceImage
	CompositeLayout string

	Model     model.ReferenceImage
	Product   model.ReferenceImage
	Face      model.ReferenceImage
	Location  model.ReferenceImage
	Pose      model.ReferenceImage
	HairStyle model.ReferenceImage
}

// attachment - 모델에 첨부할 이미지와 역할 설명
type attachment struct {
	role  string
	image model.ReferenceImage
}

// attachments - 첨부 순서: composite 또는 model/product, 이후 face/location/pose/hair
func (im Images) attachments() []attachment {
	var out []attachment
	if im.Composite.HasSource() {
		out = append(out, attachment{"composite", im.Composite})
	} else {
		if im.Model.HasSource() {
			out = append(out, attachment{"model", im.Model})
		}
		if im.Product.HasSource() {
			out = append(out, attachment{"product", im.Product})
		}
	}
	if im.Face.HasSource() && !im.Composite.HasSource() {
		out = append(out, attachment{"face", im.Face})
	}
	if im.Location.HasSource() {
		out = append(out, attachment{"location", im.Location})
	}
	if im.Pose.HasSource() {
		out = append(out, attachment{"pose", im.Pose})
	}
	if im.HairStyle.HasSource() {
		out = append(out, attachment{"hairStyle", im.HairStyle})
	}
	return out
}

// settingClauses - 설정 키별 문장 템플릿
var settingClauses = map[string]string{
	"location":    "Place the scene in this location: %s.",
	"weather":     "The weather is %s, reflected in the light and atmosphere.",
	"season":      "The season is %s.",
	"gender":      "The model's gender is %s.",
	"ethnicity":   "The model's ethnicity is %s.",
	"age":         "The model appears to be %s years old.",
	"bodyType":    "The model has a %s body type.",
	"skinTone":    "The model has a %s skin tone.",
	"hairStyle":   "The model's hairstyle is %s.",
	"hairColor":   "The model's hair color is %s.",
	"pose":        "The model's pose: %s.",
	"perspective": "Camera angle and framing: %s.",
	"mood":        "The overall mood is %s.",
	"lighting":    "Lighting: %s.",
	"style":       "Photographic style: %s.",
	"accessories": "Accessories: %s.",
	"makeup":      "Makeup: %s.",
	"background":  "Background: %s.",
}

const (
	autoPoseClause        = "No pose was specified: choose a natural, flattering pose that best shows off the garment's cut and fit."
	autoPerspectiveClause = "No camera angle was specified: choose the camera angle and framing that best presents the full garment."
)

// BuildInstruction - 언어 모델에게 보낼 지시문 작성
func BuildInstruction(userPrompt string, images Images, settings model.Settings, multiProduct bool) string {
	var sb strings.Builder

	sb.WriteString("You are a fashion photography prompt engineer. ")
	sb.WriteString("Write one detailed image-generation prompt for a virtual try-on photo based on the attached reference images and the requirements below.\n\n")

	// (a) 이미지 역할
	sb.WriteString("## Reference images\n")
	n := 0
	for _, a := range images.attachments() {
		n++
		sb.WriteString(fmt.Sprintf("- Image %d: %s\n", n, describeAttachment(a, images.CompositeLayout, multiProduct)))
	}
	if n == 0 {
		sb.WriteString("- No reference images are attached; rely on the text requirements.\n")
	}
	sb.WriteString("- The pose/body reference defines only the person's body, pose and proportions. Ignore any clothing worn in the pose/body reference.\n")
	if multiProduct {
		sb.WriteString("- The garment reference contains several products. The model must wear ALL of them together as one coordinated outfit.\n")
	} else {
		sb.WriteString("- The garment reference defines the exact clothing to wear: keep its color, pattern, material, and silhouette unchanged.\n")
	}

	// 사용자 요청
	if p := SanitizeVocabulary(strings.TrimSpace(userPrompt)); p != "" {
		sb.WriteString("\n## User request\n")
		sb.WriteString(p)
		sb.WriteString("\n")
	}

	// (b) 설정 값
	entries := settings.Entries()
	if len(entries) > 0 {
		sb.WriteString("\n## Style settings\n")
		for _, e := range entries {
			tmpl, ok := settingClauses[e.Key]
			if !ok {
				continue
			}
			sb.WriteString("- ")
			sb.WriteString(fmt.Sprintf(tmpl, SanitizeVocabulary(e.Value)))
			sb.WriteString("\n")
		}
	}

	// (c) 생략된 pose / perspective 자동 선택
	if settings.Pose == "" && !images.Pose.HasSource() {
		sb.WriteString("- ")
		sb.WriteString(autoPoseClause)
		sb.WriteString("\n")
	}
	if settings.Perspective == "" {
		sb.WriteString("- ")
		sb.WriteString(autoPerspectiveClause)
		sb.WriteString("\n")
	}

	// (d) 안전 / 스타일 제약
	sb.WriteString("\n## Constraints\n")
	sb.WriteString("- Do not mention any brand names, logos, or trademarks; describe garments generically.\n")
	sb.WriteString("- Keep the description tasteful and suitable for a general audience. Use neutral fashion vocabulary instead of words such as ")
	sb.WriteString(bannedWordList(6))
	sb.WriteString(".\n")
	sb.WriteString("- The person must be an adult.\n")
	sb.WriteString("- Output only the final prompt in English as a single paragraph, with no preamble or explanation.\n")

	return sb.String()
}

func describeAttachment(a attachment, layout string, multiProduct bool) string {
	switch a.role {
	case "composite":
		if layout == "" {
			layout = "the reference images side by side"
		}
		return "a composite of the references (" + layout + ")."
	case "model":
		return "the pose/body reference (the person to dress)."
	case "product":
		if multiProduct {
			return "the garment reference with multiple products."
		}
		return "the garment reference (the clothing to try on)."
	case "face":
		return "the face reference; keep this face identity."
	case "location":
		return "the location reference for the background."
	case "pose":
		return "the pose reference; match this pose."
	case "hairStyle":
		return "the hairstyle reference; match this hairstyle."
	}
	return a.role
}

func bannedWordList(n int) string {
	words := make([]string, 0, n)
	for i := 0; i < n && i < len(bannedVocabulary); i++ {
		words = append(words, `"`+bannedVocabulary[i].word+`"`)
	}
	return strings.Join(words, ", ")
}
