package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/naryn-heritage/heritage-backend/internal/dto"
	"github.com/naryn-heritage/heritage-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrTagNotFound      = errors.New("tag not found")
)

// TaxonomyService manages the categories and tags shared by articles, stories and landmarks.
type TaxonomyService struct {
	db *gorm.DB
}

func NewTaxonomyService(db *gorm.DB) *TaxonomyService {
	return &TaxonomyService{db: db}
}

func (s *TaxonomyService) Categories() ([]models.Category, error) {
	var out []models.Category
	err := s.db.Order("name ASC").Find(&out).Error
	return out, err
}

func (s *TaxonomyService) Tags() ([]models.Tag, error) {
	var out []models.Tag
	err := s.db.Order("name ASC").Find(&out).Error
	return out, err
}

func (s *TaxonomyService) CreateCategory(req *dto.CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "This field is required.")
	}
	if req.ParentID != nil {
		var n int64
		s.db.Model(&models.Category{}).Where("id = ?", *req.ParentID).Count(&n)
		if n == 0 {
			return nil, invalid("parent", "parent category does not exist")
		}
	}
	c := models.Category{
		Name:        name,
		Slug:        slug.Make(name),
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if c.Slug == "" {
		return nil, invalid("name", "must contain letters or digits")
	}
	if s.exists(&models.Category{}, c.Slug) {
		return nil, invalid("name", "a category with this name already exists")
	}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}

func (s *TaxonomyService) CreateTag(req *dto.TagRequest) (*models.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "This field is required.")
	}
	t := models.Tag{Name: name, Slug: slug.Make(name)}
	if t.Slug == "" {
		return nil, invalid("name", "must contain letters or digits")
	}
	if s.exists(&models.Tag{}, t.Slug) {
		return nil, invalid("name", "a tag with this name already exists")
	}
	if err := s.db.Create(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &t, nil
}

func (s *TaxonomyService) exists(model interface{}, slug string) bool {
	var n int64
	s.db.Model(model).Where("slug = ?", slug).Count(&n)
	return n > 0
}

// DeleteCategory detaches the category from content and child categories before removing it.
func (s *TaxonomyService) DeleteCategory(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrCategoryNotFound
		}
		for _, model := range []interface{}{&models.Article{}, &models.Story{}, &models.Landmark{}} {
			if err := tx.Model(model).Where("category_id = ?", id).UpdateColumn("category_id", nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", id).UpdateColumn("parent_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
}

func (s *TaxonomyService) DeleteTag(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Tag{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrTagNotFound
		}
		for _, kind := range models.Kinds {
			if table, _, ok := kind.TagJoin(); ok {
				if err := tx.Exec("DELETE FROM "+table+" WHERE tag_id = ?", id).Error; err != nil {
					return err
				}
			}
		}
		return tx.Delete(&models.Tag{}, id).Error
	})
}
