package category

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dayplan/internal/apperr"
)

type Service struct {
	DB *gorm.DB
}

type CreateInput struct {
	Content string
	Color   string
}

type UpdateInput struct {
	Content    *string
	Color      *string
	IsSelected *bool
}

func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (*Category, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, apperr.Validationf("category content required")
	}

	var c Category
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Category{}).
			Where("user_id = ? AND content = ?", userID, in.Content).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflictf("category %q already exists", in.Content)
		}

		order, err := nextOrder(tx, userID)
		if err != nil {
			return err
		}

		c = Category{
			UserID:        userID,
			Content:       in.Content,
			Color:         in.Color,
			CategoryOrder: order,
			IsSelected:    true,
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// nextOrder keeps CategoryOrder dense per user: max(existing) + 1 under a
// locking read of the current top row.
func nextOrder(tx *gorm.DB, userID uint64) (uint64, error) {
	q := tx.Model(&Category{}).Where("user_id = ?", userID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var top Category
	err := q.Order("category_order desc").First(&top).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return top.CategoryOrder + 1, nil
}

func (s *Service) List(ctx context.Context, userID uint64) ([]Category, error) {
	var out []Category
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("category_order asc").
		Find(&out).Error
	return out, err
}

func (s *Service) Update(ctx context.Context, userID, categoryID uint64, in UpdateInput) (*Category, error) {
	var c Category
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", categoryID, userID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("category %d not found", categoryID)
			}
			return err
		}

		if in.Content != nil {
			content := strings.TrimSpace(*in.Content)
			if content == "" {
				return apperr.Validationf("category content required")
			}
			var n int64
			if err := tx.Model(&Category{}).
				Where("user_id = ? AND content = ? AND id <> ?", userID, content, c.ID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflictf("category %q already exists", content)
			}
			c.Content = content
		}
		if in.Color != nil {
			c.Color = *in.Color
		}
		if in.IsSelected != nil {
			c.IsSelected = *in.IsSelected
		}
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete soft-deletes the category and detaches it from schedules in the
// same transaction so calendar reads never see a dangling reference.
func (s *Service) Delete(ctx context.Context, userID, categoryID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Category
		if err := tx.Where("id = ? AND user_id = ?", categoryID, userID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("category %d not found", categoryID)
			}
			return err
		}
		if err := tx.Exec(
			`update schedules set category_id = null where user_id = ? and category_id = ?`,
			userID, c.ID,
		).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
}
