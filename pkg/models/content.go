package models

import "time"

// ContentMeta carries the lifecycle fields every content record shares.
// OrganizationID is fixed at creation time and never changes afterwards.
// Approved may only be flipped to true by an admin; Archived is the
// reversible soft delete and keeps the approval state intact.
type ContentMeta struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Approved       bool      `json:"approved" db:"approved"`
	Archived       bool      `json:"archived" db:"archived"`
	CreatedBy      string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy      string    `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Announcement is a dated notice published by an organization.
type Announcement struct {
	ContentMeta
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	PublishAt *time.Time `json:"publish_at,omitempty" db:"publish_at"`
}

// Program is a recurring activity offered by an organization.
type Program struct {
	ContentMeta
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	AgeMin      int    `json:"age_min" db:"age_min"`
	AgeMax      int    `json:"age_max" db:"age_max"`
	Schedule    string `json:"schedule,omitempty" db:"schedule"`
	Location    string `json:"location,omitempty" db:"location"`
}

// CarouselItem is a slide on the public landing carousel.
type CarouselItem struct {
	ContentMeta
	Title    string `json:"title" db:"title"`
	ImageURL string `json:"image_url" db:"image_url"`
	LinkURL  string `json:"link_url,omitempty" db:"link_url"`
	Position int    `json:"position" db:"position"`
}

// OrgFile is a stored file object owned by an organization. The bytes live
// in object storage under Bucket/ObjectKey; this row is the metadata.
type OrgFile struct {
	ContentMeta
	Name        string `json:"name" db:"name"`
	Bucket      string `json:"bucket" db:"bucket"`
	ObjectKey   string `json:"object_key" db:"object_key"`
	ContentType string `json:"content_type" db:"content_type"`
	SizeBytes   int64  `json:"size_bytes" db:"size_bytes"`
}

// BatchRequest carries the ids for a batch approve/reject/archive call.
// The whole batch is applied as one backend call or not at all.
type BatchRequest struct {
	IDs []string `json:"ids"`
}
