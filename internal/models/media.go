package models

// Media references an object held by the blob store.
type Media struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

func (m Media) IsZero() bool { return m.PublicID == "" }

// MediaKind tells the blob store how to treat an object.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaRaw   MediaKind = "raw"
)

// OwnedMedia is a media reference paired with its kind, used when releasing blobs.
type OwnedMedia struct {
	Media
	Kind MediaKind
}
