package repository

import (
	"github.com/lshigami/Margay/internal/model"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(doc *model.Document) error
	Update(doc *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindAllByUser(userID uint) ([]model.Document, error)
	Delete(id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindAllByUser(userID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("upload_date desc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&model.Document{}, id).Error
}
