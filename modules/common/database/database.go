package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"tryon-canvas-server/modules/common/apperror"
	"tryon-canvas-server/modules/common/config"
	"tryon-canvas-server/modules/common/model"
)

// 테이블 이름
const (
	TableUsers              = "users"
	TableCreditTransactions = "credit_transactions"
	TableGenerationResults  = "generation_results"
	TableReferenceExplores  = "reference_explores"
	TableProfiles           = "profiles"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient(cfg *config.Config) (*Client, error) {
	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		supabase: supabaseClient,
	}, nil
}

// FetchBalance - 사용자 크레딧 잔액 조회
func (c *Client) FetchBalance(ctx context.Context, userID string) (int, error) {
	var users []struct {
		Credit int `json:"credit"`
	}

	data, _, err := c.supabase.From(TableUsers).
		Select("credit", "", false).
		Eq("id", userID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch user credits: %w", err)
	}

	if err := json.Unmarshal(data, &users); err != nil {
		return 0, fmt.Errorf("failed to parse user data: %w", err)
	}

	if len(users) == 0 {
		return 0, apperror.New(apperror.ErrNotFound, fmt.Sprintf("user not found: %s", userID))
	}

	return users[0].Credit, nil
}

// CompareAndSwapBalance - 이전에 읽은 잔액과 같을 때만 갱신 (낙관적 동시성)
// 갱신된 row 가 없으면 false
func (c *Client) CompareAndSwapBalance(ctx context.Context, userID string, previous, next int) (bool, error) {
	var updated []struct {
		ID string `json:"id"`
	}

	data, _, err := c.supabase.From(TableUsers).
		Update(map[string]interface{}{
			"credit":     next,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		}, "representation", "").
		Eq("id", userID).
		Eq("credit", strconv.Itoa(previous)).
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to update credits: %w", err)
	}

	if err := json.Unmarshal(data, &updated); err != nil {
		return false, fmt.Errorf("failed to parse update response: %w", err)
	}

	return len(updated) > 0, nil
}

// RecordCreditTransaction - 크레딧 트랜잭션 기록
func (c *Client) RecordCreditTransaction(ctx context.Context, userID, txType string, amount, balanceAfter int) error {
	_, _, err := c.supabase.From(TableCreditTransactions).
		Insert(map[string]interface{}{
			"user_id":          userID,
			"transaction_type": txType,
			"amount":           amount,
			"balance_after":    balanceAfter,
			"description":      "Try-on generation",
		}, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}
	return nil
}

// InsertGenerationRecord - 생성 결과 저장
func (c *Client) InsertGenerationRecord(ctx context.Context, rec *model.GenerationRecord) (*model.GenerationRecord, error) {
	var inserted []model.GenerationRecord

	data, _, err := c.supabase.From(TableGenerationResults).
		Insert(rec, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to insert generation record: %w", err)
	}

	if err := json.Unmarshal(data, &inserted); err != nil {
		return nil, fmt.Errorf("failed to parse inserted record: %w", err)
	}
	if len(inserted) == 0 {
		return rec, nil
	}

	log.Printf("✅ Generation record saved: id=%d, user=%s", inserted[0].ID, inserted[0].UserID)
	return &inserted[0], nil
}

// ListGenerationRecords - 생성 결과 목록 (최신순, userID 가 비면 전체)
func (c *Client) ListGenerationRecords(ctx context.Context, userID string, page, limit int) ([]model.GenerationRecord, int64, error) {
	from, to := pageRange(page, limit)

	query := c.supabase.From(TableGenerationResults).
		Select("*", "exact", false)
	if userID != "" {
		query = query.Eq("user_id", userID)
	}

	data, count, err := query.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(from, to, "").
		Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list generation records: %w", err)
	}

	records := []model.GenerationRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to parse generation records: %w", err)
	}
	return records, count, nil
}

// ListExplores - 공개 explore 목록
func (c *Client) ListExplores(ctx context.Context, page, limit int) ([]model.Explore, int64, error) {
	from, to := pageRange(page, limit)

	data, count, err := c.supabase.From(TableReferenceExplores).
		Select("*", "exact", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(from, to, "").
		Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list explores: %w", err)
	}

	explores := []model.Explore{}
	if err := json.Unmarshal(data, &explores); err != nil {
		return nil, 0, fmt.Errorf("failed to parse explores: %w", err)
	}
	return explores, count, nil
}

// FetchExplore - explore 단건 조회
func (c *Client) FetchExplore(ctx context.Context, id int64) (*model.Explore, error) {
	var explores []model.Explore

	data, _, err := c.supabase.From(TableReferenceExplores).
		Select("*", "", false).
		Eq("id", strconv.FormatInt(id, 10)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch explore: %w", err)
	}

	if err := json.Unmarshal(data, &explores); err != nil {
		return nil, fmt.Errorf("failed to parse explore: %w", err)
	}
	if len(explores) == 0 {
		return nil, apperror.New(apperror.ErrNotFound, fmt.Sprintf("explore not found: %d", id))
	}
	return &explores[0], nil
}

// FetchProfiles - username / avatar 조회
func (c *Client) FetchProfiles(ctx context.Context, ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	data, _, err := c.supabase.From(TableProfiles).
		Select("id,username,avatar_url", "", false).
		In("id", ids).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profiles: %w", err)
	}

	var profiles []model.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	return profiles, nil
}

// pageRange - 1 부터 시작하는 page 를 PostgREST range 로 변환
func pageRange(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	from := (page - 1) * limit
	return from, from + limit - 1
}
