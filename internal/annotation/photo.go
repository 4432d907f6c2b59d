package annotation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// BlobScheme prefixes transient resource URLs issued by Resources.
const BlobScheme = "blob:"

// Photo is an image reference. URL is either a data URL, which is persisted,
// or a transient blob URL, which is not.
type Photo struct {
	Name     string
	URL      string
	MIMEType string
}

// NewDataPhoto builds a photo backed by a base64 data URL.
func NewDataPhoto(name, mimeType string, data []byte) *Photo {
	return &Photo{
		Name:     name,
		URL:      "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}
}

// IsTransient reports whether the photo refers to a blob URL.
func (p *Photo) IsTransient() bool {
	return p != nil && strings.HasPrefix(p.URL, BlobScheme)
}

// Clone returns a copy, nil for nil.
func (p *Photo) Clone() *Photo {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Bytes decodes a data URL photo.
func (p *Photo) Bytes() ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("nil photo")
	}
	return DecodeDataURL(p.URL)
}

// DecodeDataURL returns the payload of a data URL.
func DecodeDataURL(url string) ([]byte, error) {
	if !strings.HasPrefix(url, "data:") {
		return nil, fmt.Errorf("not a data url")
	}
	header, payload, ok := strings.Cut(url, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	if strings.Contains(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	return []byte(payload), nil
}

type photoJSON struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl,omitempty"`
	URL     string `json:"url,omitempty"`
	Type    string `json:"type"`
}

// MarshalJSON writes {name, dataUrl, type}. Transient photos are written as
// null since their URL does not survive the session.
func (p Photo) MarshalJSON() ([]byte, error) {
	if strings.HasPrefix(p.URL, BlobScheme) {
		return []byte("null"), nil
	}
	return json.Marshal(photoJSON{Name: p.Name, DataURL: p.URL, Type: p.MIMEType})
}

// UnmarshalJSON accepts dataUrl or url. A photo with neither decodes as an
// empty URL; callers use Revive to drop it.
func (p *Photo) UnmarshalJSON(b []byte) error {
	var raw photoJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	url := raw.DataURL
	if url == "" {
		url = raw.URL
	}
	name := raw.Name
	if name == "" {
		name = "image"
	}
	*p = Photo{Name: name, URL: url, MIMEType: raw.Type}
	return nil
}

// Revive returns nil for a photo without a usable URL.
func Revive(p *Photo) *Photo {
	if p == nil || p.URL == "" {
		return nil
	}
	return p
}

// Resources issues and revokes transient blob URLs for in-memory image data.
type Resources struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewResources creates an empty registry.
func NewResources() *Resources {
	return &Resources{blobs: make(map[string][]byte)}
}

// Register stores data and returns a transient photo referencing it.
func (r *Resources) Register(name, mimeType string, data []byte) *Photo {
	url := BlobScheme + "titanroof/" + uuid.NewString()
	r.mu.Lock()
	r.blobs[url] = data
	r.mu.Unlock()
	return &Photo{Name: name, URL: url, MIMEType: mimeType}
}

// Open returns the data behind a blob or data URL.
func (r *Resources) Open(p *Photo) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("nil photo")
	}
	if !p.IsTransient() {
		return p.Bytes()
	}
	if r == nil {
		return nil, fmt.Errorf("blob %s: no registry", p.URL)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.blobs[p.URL]
	if !ok {
		return nil, fmt.Errorf("blob %s released", p.URL)
	}
	return data, nil
}

// Release revokes the photo's blob URL. Data URLs are left alone.
func (r *Resources) Release(p *Photo) {
	if r == nil || !p.IsTransient() {
		return
	}
	r.mu.Lock()
	delete(r.blobs, p.URL)
	r.mu.Unlock()
}

// ReleaseAll releases each photo.
func (r *Resources) ReleaseAll(photos []*Photo) {
	for _, p := range photos {
		r.Release(p)
	}
}

// Live returns the number of blobs still registered.
func (r *Resources) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
