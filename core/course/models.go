package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

const DefaultLanguage = "english"

var (
	AllLevels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

	Levels = []Level{
		{Name: "Beginner", Value: LevelBeginner},
		{Name: "Intermediate", Value: LevelIntermediate},
		{Name: "Advanced", Value: LevelAdvanced},
	}
)

type Level struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Level        string    `json:"level"`
	Language     string    `json:"language"`
	IsFree       bool      `json:"is_free"`
	InstructorID string    `json:"instructor_id"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
// Slug is derived from Title when not provided.
type NewCourse struct {
	Title       string `json:"title" validate:"required,min=3"`
	Slug        string `json:"slug" validate:"required,slug"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	Level       string `json:"level" validate:"required,courselevel"`
	Language    string `json:"language"`
	IsFree      bool   `json:"is_free"`
	IsPublished bool   `json:"is_published"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	nc.Language = core.CleanString(nc.Language, true /* lower */)
	if nc.Language == "" {
		nc.Language = DefaultLanguage
	}
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	if nc.Slug == "" {
		nc.Slug = MakeSlug(nc.Title)
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string `json:"title" validate:"omitempty,min=3"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       string `json:"level" validate:"omitempty,courselevel"`
	Language    string `json:"language"`
	IsFree      *bool  `json:"is_free"`
	IsPublished *bool  `json:"is_published"`
}

func (uc *UpdateCourse) Validate(origCrs Course, validate *validator.Validate) error {
	title := core.CleanString(uc.Title)
	if title != "" {
		uc.Title = title
	} else {
		uc.Title = origCrs.Title
	}

	desc := core.CleanString(uc.Description)
	if desc != "" {
		uc.Description = desc
	} else {
		uc.Description = origCrs.Description
	}

	category := core.CleanString(uc.Category, true /* lower */)
	if category != "" {
		uc.Category = category
	} else {
		uc.Category = origCrs.Category
	}

	language := core.CleanString(uc.Language, true /* lower */)
	if language != "" {
		uc.Language = language
	} else {
		uc.Language = origCrs.Language
	}

	if uc.Level == "" {
		uc.Level = origCrs.Level
	}

	return validate.Struct(uc)
}

type QueryFilter struct {
	Search       string `query:"search"`
	Category     string `query:"category"`
	Level        string `query:"level"`
	Language     string `query:"language"`
	IsFree       *bool  `query:"is_free"`
	InstructorID string `query:"instructor_id"`
	IsPublished  *bool  `query:"is_published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.Level == "" && qf.Language == "" &&
		qf.IsFree == nil && qf.InstructorID == "" && qf.IsPublished == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Level = core.CleanString(qf.Level, true /* lower */)
	qf.Language = core.CleanString(qf.Language, true /* lower */)
}

// GetFilter selects a single Course. Exactly one selector should be set.
type GetFilter struct {
	ID   string
	Slug string
}
