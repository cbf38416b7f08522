package explore

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"tryon-canvas-server/modules/common/model"
)

// 프로필 캐시 TTL
const (
	profileCacheTTL     = 10 * time.Minute
	profileCacheCleanup = 20 * time.Minute
)

// Store - explore / profiles 조회
type Store interface {
	ListExplores(ctx context.Context, page, limit int) ([]model.Explore, int64, error)
	FetchExplore(ctx context.Context, id int64) (*model.Explore, error)
	FetchProfiles(ctx context.Context, ids []string) ([]model.Profile, error)
}

// Item - explore 응답 DTO
type Item struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"userId"`
	ImageURL  string          `json:"imageUrl"`
	Prompt    string          `json:"prompt"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	Username  string          `json:"username"`
	AvatarURL string          `json:"avatarUrl"`
}

// Service - explore 목록 + 작성자 프로필 결합
type Service struct {
	store    Store
	profiles *cache.Cache
}

// NewService - 서비스 생성
func NewService(store Store) *Service {
	return &Service{
		store:    store,
		profiles: cache.New(profileCacheTTL, profileCacheCleanup),
	}
}

// List - 최신순 explore 목록
func (s *Service) List(ctx context.Context, page, limit int) ([]Item, int64, error) {
	explores, total, err := s.store.ListExplores(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return s.joinProfiles(ctx, explores), total, nil
}

// Get - explore 단건
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	explore, err := s.store.FetchExplore(ctx, id)
	if err != nil {
		return nil, err
	}
	items := s.joinProfiles(ctx, []model.Explore{*explore})
	return &items[0], nil
}

// joinProfiles - 캐시에 없는 작성자만 한 번에 조회
func (s *Service) joinProfiles(ctx context.Context, explores []model.Explore) []Item {
	var missing []string
	seen := make(map[string]bool)
	for _, e := range explores {
		if e.UserID == "" || seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		if _, ok := s.profiles.Get(e.UserID); !ok {
			missing = append(missing, e.UserID)
		}
	}

	if len(missing) > 0 {
		fetched, err := s.store.FetchProfiles(ctx, missing)
		if err != nil {
			// 프로필이 없어도 목록은 응답
			log.Printf("⚠️ [Explore] Failed to fetch %d profiles: %v", len(missing), err)
		} else {
			found := make(map[string]model.Profile, len(fetched))
			for _, p := range fetched {
				found[p.ID] = p
			}
			// 없는 프로필도 빈 값으로 캐시
			for _, id := range missing {
				s.profiles.Set(id, found[id], cache.DefaultExpiration)
			}
		}
	}

	items := make([]Item, 0, len(explores))
	for _, e := range explores {
		item := Item{
			ID:        e.ID,
			UserID:    e.UserID,
			ImageURL:  e.ImageURL,
			Prompt:    e.Prompt,
			Settings:  e.Settings,
			CreatedAt: e.CreatedAt,
			Username:  e.Username,
			AvatarURL: e.AvatarURL,
		}
		if cached, ok := s.profiles.Get(e.UserID); ok {
			p := cached.(model.Profile)
			if p.Username != "" {
				item.Username = p.Username
			}
			if p.AvatarURL != "" {
				item.AvatarURL = p.AvatarURL
			}
		}
		items = append(items, item)
	}
	return items
}
