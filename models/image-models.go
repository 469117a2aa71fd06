package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatusKind string

const (
	StatusUploading  StatusKind = "uploading"
	StatusUploaded   StatusKind = "uploaded"
	StatusGenerating StatusKind = "generating"
	StatusGenerated  StatusKind = "generated"
)

// ImageRef points at a stored binary: the URL clients fetch and the storage key used to release it.
type ImageRef struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

// ImageStatus is the tagged lifecycle state of an Image. Only the fields of the current
// kind are set.
type ImageStatus struct {
	Kind           StatusKind `json:"kind"`
	Image          *ImageRef  `json:"image,omitempty"`
	DecoratedImage *ImageRef  `json:"decoratedImage,omitempty"`
	Prompt         string     `json:"prompt,omitempty"`
}

func Uploading() ImageStatus {
	return ImageStatus{Kind: StatusUploading}
}

func Uploaded(image ImageRef) ImageStatus {
	return ImageStatus{Kind: StatusUploaded, Image: &image}
}

func Generating(image ImageRef, prompt string) ImageStatus {
	return ImageStatus{Kind: StatusGenerating, Image: &image, Prompt: prompt}
}

func Generated(image, decorated ImageRef, prompt string) ImageStatus {
	return ImageStatus{Kind: StatusGenerated, Image: &image, DecoratedImage: &decorated, Prompt: prompt}
}

func validRef(r *ImageRef) bool {
	return r != nil && r.URL != "" && r.StorageID != ""
}

// Validate checks that the status carries exactly the fields of its kind.
func (s ImageStatus) Validate() error {
	switch s.Kind {
	case StatusUploading:
		if s.Image != nil || s.DecoratedImage != nil || s.Prompt != "" {
			return fmt.Errorf("status %s carries no payload", s.Kind)
		}
	case StatusUploaded:
		if !validRef(s.Image) || s.DecoratedImage != nil || s.Prompt != "" {
			return fmt.Errorf("status %s requires only the original image", s.Kind)
		}
	case StatusGenerating:
		if !validRef(s.Image) || s.DecoratedImage != nil || s.Prompt == "" {
			return fmt.Errorf("status %s requires the original image and a prompt", s.Kind)
		}
	case StatusGenerated:
		if !validRef(s.Image) || !validRef(s.DecoratedImage) || s.Prompt == "" {
			return fmt.Errorf("status %s requires the original image, the decorated image and a prompt", s.Kind)
		}
	default:
		return fmt.Errorf("unknown status %q", s.Kind)
	}
	return nil
}

var transitions = map[StatusKind][]StatusKind{
	StatusUploading:  {StatusUploaded},
	StatusUploaded:   {StatusGenerating},
	StatusGenerating: {StatusGenerated},
	StatusGenerated:  {StatusGenerating},
}

// CanTransition reports whether a record may move from one status kind to another.
func CanTransition(from, to StatusKind) bool {
	for _, k := range transitions[from] {
		if k == to {
			return true
		}
	}
	return false
}

// SourcesFor lists the kinds that may transition into to.
func SourcesFor(to StatusKind) []StatusKind {
	var from []StatusKind
	for _, k := range []StatusKind{StatusUploading, StatusUploaded, StatusGenerating, StatusGenerated} {
		if CanTransition(k, to) {
			from = append(from, k)
		}
	}
	return from
}

type Image struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID             uint       `gorm:"not null;index"`
	Kind               StatusKind `gorm:"column:status;type:varchar(16);not null;index"`
	OriginalURL        *string
	OriginalStorageID  *string
	DecoratedURL       *string
	DecoratedStorageID *string
	Prompt             *string
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time
}

func (Image) TableName() string {
	return "images"
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Kind == "" {
		i.Kind = StatusUploading
	}
	return nil
}

func refFrom(url, storageID *string) *ImageRef {
	if url == nil || storageID == nil {
		return nil
	}
	return &ImageRef{URL: *url, StorageID: *storageID}
}

func strPtr(s string) *string {
	return &s
}

// Status assembles the tagged status from the flat columns.
func (i *Image) Status() ImageStatus {
	s := ImageStatus{Kind: i.Kind}
	switch i.Kind {
	case StatusUploaded:
		s.Image = refFrom(i.OriginalURL, i.OriginalStorageID)
	case StatusGenerating:
		s.Image = refFrom(i.OriginalURL, i.OriginalStorageID)
		if i.Prompt != nil {
			s.Prompt = *i.Prompt
		}
	case StatusGenerated:
		s.Image = refFrom(i.OriginalURL, i.OriginalStorageID)
		s.DecoratedImage = refFrom(i.DecoratedURL, i.DecoratedStorageID)
		if i.Prompt != nil {
			s.Prompt = *i.Prompt
		}
	}
	return s
}

// SetStatus writes the status onto the flat columns, clearing fields the kind does not carry.
func (i *Image) SetStatus(s ImageStatus) error {
	if err := s.Validate(); err != nil {
		return err
	}
	i.Kind = s.Kind
	i.OriginalURL, i.OriginalStorageID = nil, nil
	i.DecoratedURL, i.DecoratedStorageID = nil, nil
	i.Prompt = nil
	if s.Image != nil {
		i.OriginalURL, i.OriginalStorageID = strPtr(s.Image.URL), strPtr(s.Image.StorageID)
	}
	if s.DecoratedImage != nil {
		i.DecoratedURL, i.DecoratedStorageID = strPtr(s.DecoratedImage.URL), strPtr(s.DecoratedImage.StorageID)
	}
	if s.Prompt != "" {
		i.Prompt = strPtr(s.Prompt)
	}
	return nil
}

// StatusColumns is the column set for a conditional status update.
func StatusColumns(s ImageStatus) (map[string]interface{}, error) {
	var img Image
	if err := img.SetStatus(s); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":               img.Kind,
		"original_url":         img.OriginalURL,
		"original_storage_id":  img.OriginalStorageID,
		"decorated_url":        img.DecoratedURL,
		"decorated_storage_id": img.DecoratedStorageID,
		"prompt":               img.Prompt,
	}, nil
}

// StorageRefs returns every stored binary the record references.
func (i *Image) StorageRefs() []ImageRef {
	var refs []ImageRef
	if r := refFrom(i.OriginalURL, i.OriginalStorageID); r != nil {
		refs = append(refs, *r)
	}
	if r := refFrom(i.DecoratedURL, i.DecoratedStorageID); r != nil {
		refs = append(refs, *r)
	}
	return refs
}

func (i Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        uuid.UUID   `json:"id"`
		UserID    uint        `json:"userId"`
		Status    ImageStatus `json:"status"`
		CreatedAt time.Time   `json:"createdAt"`
		UpdatedAt time.Time   `json:"updatedAt"`
	}{
		ID:        i.ID,
		UserID:    i.UserID,
		Status:    i.Status(),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	})
}
