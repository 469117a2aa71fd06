package models

import "time"

type ImageModel string

const (
	ModelOpenAIGPTImage1  ImageModel = "openai/gpt-image-1"
	ModelGeminiFlashImage ImageModel = "google/gemini-2.5-flash-image-preview"
)

const DefaultImageModel = ModelGeminiFlashImage

func (m ImageModel) Valid() bool {
	return m == ModelOpenAIGPTImage1 || m == ModelGeminiFlashImage
}

type UserSettings struct {
	ID         uint       `json:"-" gorm:"primaryKey"`
	UserID     uint       `json:"-" gorm:"uniqueIndex;not null"`
	ImageModel ImageModel `json:"imageModel" gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time  `json:"-"`
	UpdatedAt  time.Time  `json:"-"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}

// DefaultSettings is what a user gets before saving any preference.
func DefaultSettings(userID uint) *UserSettings {
	return &UserSettings{UserID: userID, ImageModel: DefaultImageModel}
}
