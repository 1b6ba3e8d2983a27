// Package store 以 gorm 實作食譜儲存庫
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipe-recommender/internal/pkg/common"
)

// Invalidator 寫入成功後需要清空的快取
type Invalidator interface {
	InvalidateAll()
}

// recipeRow 資料表 recipes
type recipeRow struct {
	ID          string                   `gorm:"primaryKey;size:64"`
	Title       string                   `gorm:"size:255;not null"`
	Image       string                   `gorm:"size:512"`
	Source      string                   `gorm:"size:64;index"`
	Ingredients []common.IngredientEntry `gorm:"serializer:json;type:text"`
	Steps       []string                 `gorm:"serializer:json;type:text"`
	Tags        []string                 `gorm:"serializer:json;type:text"`
	Calories    float64
	ProteinG    float64
	CarbsG      float64
	FatG        float64
	FiberG      float64
	SearchText  string          `gorm:"type:text"`
	Embedding   pgvector.Vector `gorm:"type:vector(64)"`
	CreatedAt   time.Time
}

// TableName 資料表名稱
func (recipeRow) TableName() string {
	return "recipes"
}

// Models 需要自動遷移的模型
func Models() []interface{} {
	return []interface{}{&recipeRow{}}
}

// Store 食譜儲存庫
type Store struct {
	db          *gorm.DB
	invalidator Invalidator
}

// New 創建儲存庫；invalidator 可為 nil
func New(db *gorm.DB, invalidator Invalidator) *Store {
	return &Store{
		db:          db,
		invalidator: invalidator,
	}
}

// Get 依 id 取得食譜，不存在時回傳 nil, nil
func (s *Store) Get(ctx context.Context, id string) (*common.RecipeRecord, error) {
	var row recipeRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}
	rec := row.toRecord()
	return &rec, nil
}

// Put 寫入食譜；id 已存在時不做任何事。每次成功都會清空候選快取
func (s *Store) Put(ctx context.Context, rec common.RecipeRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return common.NewInvalidInputError("recipe id is required", nil)
	}

	row := fromRecord(rec)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to put recipe %s: %w", rec.ID, res.Error)
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}

	common.LogDebug("Recipe stored",
		zap.String("id", rec.ID),
		zap.Bool("inserted", res.RowsAffected > 0),
	)
	return nil
}

// Query 依文字檢索；postgres 以向量距離排序，其他資料庫以關鍵字比對
func (s *Store) Query(ctx context.Context, text string, limit int) ([]common.RecipeRecord, error) {
	if limit <= 0 {
		return []common.RecipeRecord{}, nil
	}

	var rows []recipeRow
	var err error
	if s.db.Dialector.Name() == "postgres" {
		rows, err = s.vectorQuery(ctx, text, limit)
	} else {
		rows, err = s.keywordQuery(ctx, text, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}

	out := make([]common.RecipeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func (s *Store) vectorQuery(ctx context.Context, text string, limit int) ([]recipeRow, error) {
	var rows []recipeRow
	err := s.db.WithContext(ctx).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{Embed(text)}},
		}).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// keywordQuery 任一關鍵字命中即為候選，依命中數排序；沒有關鍵字時依 id 回傳
func (s *Store) keywordQuery(ctx context.Context, text string, limit int) ([]recipeRow, error) {
	tokens := Tokenize(text)
	var rows []recipeRow

	if len(tokens) == 0 {
		err := s.db.WithContext(ctx).Order("id").Limit(limit).Find(&rows).Error
		return rows, err
	}

	query := s.db.WithContext(ctx)
	conds := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens))
	for _, tok := range tokens {
		conds = append(conds, "search_text LIKE ?")
		args = append(args, "%"+tok+"%")
	}
	if err := query.Where(strings.Join(conds, " OR "), args...).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(rows))
	for _, row := range rows {
		for _, tok := range tokens {
			if strings.Contains(row.SearchText, tok) {
				scores[row.ID]++
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return scores[rows[i].ID] > scores[rows[j].ID]
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Count 食譜總數
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&recipeRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// Exists 是否已有此 id
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&recipeRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check recipe %s: %w", id, err)
	}
	return n > 0, nil
}

func searchText(rec common.RecipeRecord) string {
	parts := []string{rec.Title, rec.IngredientText()}
	parts = append(parts, rec.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

func fromRecord(rec common.RecipeRecord) recipeRow {
	m := rec.Macros.Clamp()
	text := searchText(rec)
	return recipeRow{
		ID:          rec.ID,
		Title:       rec.Title,
		Image:       rec.Image,
		Source:      rec.Source,
		Ingredients: rec.Ingredients,
		Steps:       rec.Steps,
		Tags:        common.NormalizeTags(rec.Tags),
		Calories:    m.Calories,
		ProteinG:    m.ProteinG,
		CarbsG:      m.CarbsG,
		FatG:        m.FatG,
		FiberG:      m.FiberG,
		SearchText:  text,
		Embedding:   Embed(text),
	}
}

func (r recipeRow) toRecord() common.RecipeRecord {
	return common.RecipeRecord{
		ID:          r.ID,
		Title:       r.Title,
		Image:       r.Image,
		Source:      r.Source,
		Ingredients: r.Ingredients,
		Steps:       r.Steps,
		Tags:        r.Tags,
		Macros: common.MacroVector{
			Calories: r.Calories,
			ProteinG: r.ProteinG,
			CarbsG:   r.CarbsG,
			FatG:     r.FatG,
			FiberG:   r.FiberG,
		},
	}
}
