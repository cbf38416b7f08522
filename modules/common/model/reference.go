package model

import (
	"fmt"
)

// 3-role 태그
const (
	TagFace    = "image_1"
	TagModel   = "image_2"
	TagProduct = "image_3"
)

// ReferenceKind - ReferenceSet 변형 종류
type ReferenceKind int

const (
	KindFlat ReferenceKind = iota
	KindThreeRole
)

// ThreeRole - 얼굴 / 모델 / 상품 고정 역할 이미지
type ThreeRole struct {
	Face    ReferenceImage
	Model   ReferenceImage
	Product ReferenceImage
}

// ReferenceSet - ThreeRole 또는 Flat 중 하나
type ReferenceSet struct {
	Kind      ReferenceKind
	ThreeRole ThreeRole
	Flat      []ReferenceImage
}

// NewReferenceSet - 요청 이미지 목록에서 변형 선택 (경계에서 한번만)
func NewReferenceSet(images []ReferenceImage) (ReferenceSet, error) {
	usable := make([]ReferenceImage, 0, len(images))
	for _, img := range images {
		if img.HasSource() {
			usable = append(usable, img)
		}
	}
	if len(usable) == 0 {
		return ReferenceSet{}, fmt.Errorf("at least one reference image is required")
	}

	byTag := map[string]ReferenceImage{}
	for _, img := range usable {
		switch img.Tag {
		case TagFace, TagModel, TagProduct:
			if _, dup := byTag[img.Tag]; dup {
				return ReferenceSet{}, fmt.Errorf("duplicate reference tag %s", img.Tag)
			}
			byTag[img.Tag] = img
		}
	}

	if len(byTag) == 0 {
		return ReferenceSet{Kind: KindFlat, Flat: usable}, nil
	}
	if len(byTag) != 3 {
		return ReferenceSet{}, fmt.Errorf("tags %s, %s and %s must be provided together", TagFace, TagModel, TagProduct)
	}
	if len(usable) != 3 {
		return ReferenceSet{}, fmt.Errorf("tagged requests accept exactly 3 reference images, got %d", len(usable))
	}

	return ReferenceSet{
		Kind: KindThreeRole,
		ThreeRole: ThreeRole{
			Face:    byTag[TagFace],
			Model:   byTag[TagModel],
			Product: byTag[TagProduct],
		},
	}, nil
}

// Images - 순서가 있는 전체 이미지 목록 (ThreeRole: face, model, product)
func (r ReferenceSet) Images() []ReferenceImage {
	if r.Kind == KindThreeRole {
		return []ReferenceImage{r.ThreeRole.Face, r.ThreeRole.Model, r.ThreeRole.Product}
	}
	return r.Flat
}

// URIs - 기록용 URI 목록 (인라인 데이터는 제외)
func (r ReferenceSet) URIs() []string {
	out := []string{}
	for _, img := range r.Images() {
		if img.URI != "" {
			out = append(out, img.URI)
		}
	}
	return out
}
