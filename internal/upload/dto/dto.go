package dto

import (
	"io"
	"time"
)

type Kind string

const (
	KindProduct Kind = "product"
	KindAvatar  Kind = "avatar"
)

type FileInfo struct {
	Name        string    `json:"filename"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	HumanSize   string    `json:"size_human"`
	ContentType string    `json:"content_type,omitempty"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Upload is a file received from a client; Size is what the client declared.
type Upload struct {
	Kind   Kind
	Size   int64
	Reader io.Reader
}
