package admin

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/nexsite/internal/db"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

type demoContent struct {
	ID           string         `yaml:"id"`
	Section      string         `yaml:"section"`
	Title        string         `yaml:"title"`
	Content      string         `yaml:"content"`
	Metadata     map[string]any `yaml:"metadata"`
	ImageURL     string         `yaml:"image_url"`
	DisplayOrder int            `yaml:"display_order"`
	IsActive     bool           `yaml:"is_active"`
}

type demoLead struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	BusinessName string `yaml:"business_name"`
	Website      string `yaml:"website"`
	Industry     string `yaml:"industry"`
	Message      string `yaml:"message"`
	AgeDays      int    `yaml:"age_days"`
	Status       string `yaml:"status"`
}

type demoFile struct {
	Content []demoContent `yaml:"content"`
	Leads   []demoLead    `yaml:"leads"`
}

var (
	demoOnce sync.Once
	demo     demoFile
	demoErr  error
)

func loadDemo() demoFile {
	demoOnce.Do(func() {
		demoErr = yaml.Unmarshal(demoYAML, &demo)
	})
	if demoErr != nil {
		panic(fmt.Sprintf("admin: invalid embedded demo data: %v", demoErr))
	}
	return demo
}

// DemoContent returns a fresh copy of the built-in content, grouped by
// section, with every timestamp set to now.
func DemoContent(now time.Time) map[string][]db.ContentItem {
	grouped := make(map[string][]db.ContentItem)
	for _, row := range loadDemo().Content {
		grouped[row.Section] = append(grouped[row.Section], db.ContentItem{
			ID:           row.ID,
			Section:      row.Section,
			Title:        row.Title,
			Content:      row.Content,
			Metadata:     demoMetadata(row.Metadata),
			ImageURL:     row.ImageURL,
			DisplayOrder: row.DisplayOrder,
			IsActive:     row.IsActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return grouped
}

// DemoInputs returns the built-in content as create requests, for seeding.
func DemoInputs() []db.ContentInput {
	rows := loadDemo().Content
	inputs := make([]db.ContentInput, 0, len(rows))
	for _, row := range rows {
		active := row.IsActive
		inputs = append(inputs, db.ContentInput{
			Section:      row.Section,
			Title:        row.Title,
			Content:      row.Content,
			Metadata:     demoMetadata(row.Metadata),
			ImageURL:     row.ImageURL,
			DisplayOrder: row.DisplayOrder,
			IsActive:     &active,
		})
	}
	return inputs
}

// DemoLeads returns the built-in requests, newest first, aged relative to now.
func DemoLeads(now time.Time) []db.LeadRequest {
	rows := loadDemo().Leads
	leads := make([]db.LeadRequest, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, db.LeadRequest{
			ID:           row.ID,
			Name:         row.Name,
			Email:        row.Email,
			Phone:        row.Phone,
			BusinessName: row.BusinessName,
			Website:      row.Website,
			Industry:     row.Industry,
			Message:      row.Message,
			CreatedAt:    now.Add(-time.Duration(row.AgeDays) * 24 * time.Hour),
			Status:       db.LeadStatus(row.Status),
		})
	}
	return leads
}

func demoMetadata(values map[string]any) db.Metadata {
	if values == nil {
		return db.EmptyObject()
	}
	return db.NewMetadata(values)
}
