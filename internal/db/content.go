package db

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentItem is one editable unit of marketing copy.
// Items are grouped by Section and ordered by DisplayOrder; inactive items
// stay in storage but are never rendered publicly.
type ContentItem struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Section      string    `gorm:"size:100;index;not null" json:"section"`
	Title        string    `gorm:"not null" json:"title"`
	Content      string    `gorm:"type:text" json:"content"`
	Metadata     Metadata  `json:"metadata"`
	ImageURL     string    `gorm:"size:500" json:"image_url"`
	DisplayOrder int       `gorm:"index" json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the table name shared with the hosted store.
func (ContentItem) TableName() string {
	return "website_info"
}

// BeforeCreate assigns an id when the caller did not supply one.
func (c *ContentItem) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ContentInput describes a content item to create.
// IsActive is a pointer so an unset value defaults to true.
type ContentInput struct {
	Section      string   `json:"section"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Metadata     Metadata `json:"metadata"`
	ImageURL     string   `json:"image_url"`
	DisplayOrder int      `json:"display_order"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

// Item builds the record to insert.
func (in ContentInput) Item() ContentItem {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	metadata := in.Metadata
	if metadata.IsNull() {
		metadata = EmptyObject()
	}
	return ContentItem{
		Section:      in.Section,
		Title:        in.Title,
		Content:      in.Content,
		Metadata:     metadata,
		ImageURL:     in.ImageURL,
		DisplayOrder: in.DisplayOrder,
		IsActive:     active,
	}
}

// ContentPatch is a partial update. Nil fields are left untouched.
type ContentPatch struct {
	Title        *string   `json:"title,omitempty"`
	Content      *string   `json:"content,omitempty"`
	Metadata     *Metadata `json:"metadata,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	DisplayOrder *int      `json:"display_order,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ContentPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Columns maps the set fields to their column names.
func (p ContentPatch) Columns() map[string]any {
	cols := make(map[string]any, 6)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.Metadata != nil {
		cols["metadata"] = *p.Metadata
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	if p.DisplayOrder != nil {
		cols["display_order"] = *p.DisplayOrder
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	return cols
}

// Apply copies the set fields onto item.
func (p ContentPatch) Apply(item *ContentItem) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.Metadata != nil {
		item.Metadata = *p.Metadata
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.DisplayOrder != nil {
		item.DisplayOrder = *p.DisplayOrder
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
}

// FullPatch returns a patch carrying every editable field of item.
func FullPatch(item ContentItem) ContentPatch {
	metadata := item.Metadata
	return ContentPatch{
		Title:        &item.Title,
		Content:      &item.Content,
		Metadata:     &metadata,
		ImageURL:     &item.ImageURL,
		DisplayOrder: &item.DisplayOrder,
		IsActive:     &item.IsActive,
	}
}

// ContentFilter narrows a content listing. An empty Section matches every section.
type ContentFilter struct {
	Section    string
	ActiveOnly bool
}

// Match reports whether item passes the filter.
func (f ContentFilter) Match(item ContentItem) bool {
	if f.Section != "" && item.Section != f.Section {
		return false
	}
	return !f.ActiveOnly || item.IsActive
}

// SortContent orders items by display order, then creation time.
// The sort is stable so equal keys keep their input order.
func SortContent(items []ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
