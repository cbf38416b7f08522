package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReferenceSet(t *testing.T) {
	face := ReferenceImage{URI: "https://cdn/face.jpg", Tag: TagFace}
	body := ReferenceImage{URI: "https://cdn/model.jpg", Tag: TagModel}
	product := ReferenceImage{URI: "https://cdn/product.jpg", Tag: TagProduct}

	t.Run("three role in any order", func(t *testing.T) {
		set, err := NewReferenceSet([]ReferenceImage{product, face, body})
		require.NoError(t, err)
		assert.Equal(t, KindThreeRole, set.Kind)
		assert.Equal(t, face, set.ThreeRole.Face)
		assert.Equal(t, body, set.ThreeRole.Model)
		assert.Equal(t, product, set.ThreeRole.Product)
		assert.Equal(t, []string{face.URI, body.URI, product.URI}, set.URIs())
	})

	t.Run("flat without tags", func(t *testing.T) {
		set, err := NewReferenceSet([]ReferenceImage{{URI: "a"}, {Data: "aGVsbG8="}})
		require.NoError(t, err)
		assert.Equal(t, KindFlat, set.Kind)
		assert.Len(t, set.Images(), 2)
		assert.Equal(t, []string{"a"}, set.URIs())
	})

	t.Run("partial tags rejected", func(t *testing.T) {
		_, err := NewReferenceSet([]ReferenceImage{face, body})
		assert.ErrorContains(t, err, "must be provided together")
	})

	t.Run("extra untagged image with tags rejected", func(t *testing.T) {
		_, err := NewReferenceSet([]ReferenceImage{face, body, product, {URI: "extra"}})
		assert.Error(t, err)
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := NewReferenceSet([]ReferenceImage{{Tag: "image_1"}})
		assert.ErrorContains(t, err, "at least one")
	})
}

func TestSettingsFromMap(t *testing.T) {
	s := SettingsFromMap(map[string]interface{}{
		"location":    "  Paris street ",
		"cameraAngle": map[string]interface{}{"label": "low angle"},
		"age":         float64(28),
		"accessories": []interface{}{"hat", "scarf"},
		"unknownKey":  "ignored",
		"mood":        nil,
	})

	assert.Equal(t, "Paris street", s.Location)
	assert.Equal(t, "low angle", s.Perspective)
	assert.Equal(t, "28", s.Age)
	assert.Equal(t, "hat, scarf", s.Accessories)
	assert.Empty(t, s.Mood)

	entries := s.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, SettingEntry{"location", "Paris street"}, entries[0])
	assert.Equal(t, "perspective", entries[2].Key)
	assert.Equal(t, "accessories", entries[3].Key)
}

func TestSettingsFromMap_CanonicalKeyBeatsAlias(t *testing.T) {
	raw := map[string]interface{}{
		"perspective": "full body",
		"cameraAngle": "close up",
		"angle":       "side",
		"race":        "korean",
		"skin":        "",
		"skinColor":   "warm",
	}
	// map 순회 순서와 무관하게 항상 같은 결과
	for i := 0; i < 50; i++ {
		s := SettingsFromMap(raw)
		assert.Equal(t, "full body", s.Perspective)
		assert.Equal(t, "korean", s.Ethnicity)
		assert.Equal(t, "warm", s.SkinTone)
	}

	s := SettingsFromMap(map[string]interface{}{"perspective": " ", "cameraAngle": "close up", "angle": "side"})
	// 빈 원래 키는 별칭으로 채움, 별칭끼리는 이름순 (angle < cameraAngle)
	assert.Equal(t, "side", s.Perspective)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStarting.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCanceled.Terminal())
}
