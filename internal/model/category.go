package model

// Category 商品分类，支持一级父子关系
type Category struct {
	BaseModel
	Name        string     `gorm:"size:100;uniqueIndex;not null;comment:分类名" json:"name"`
	Description string     `gorm:"size:500;comment:描述" json:"description"`
	ParentID    *int64     `gorm:"index;comment:父分类ID" json:"parent_id,omitempty"`
	Status      string     `gorm:"size:20;index;default:active;comment:状态(active/inactive)" json:"status"`
	CreatedBy   int64      `gorm:"comment:创建人" json:"created_by,omitempty"`
	UpdatedBy   int64      `gorm:"comment:最后修改人" json:"updated_by,omitempty"`
	Children    []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// IsActive 是否启用
func (c *Category) IsActive() bool {
	return c.Status == StatusActive
}
