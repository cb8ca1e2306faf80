package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
)

// ImageSet owns the uploaded images of one report workspace, keyed by image ID.
// Each record's loading flag and analysis are only changed through the set,
// so an analysis that finishes after its image was removed is dropped.
// Every analysis in flight has a done channel, closed when it resolves or its
// image is removed.
type ImageSet struct {
	mu       sync.Mutex
	order    []string
	images   map[string]*entity.UploadedImage
	inflight map[string]chan struct{}
	touched  time.Time
}

// NewImageSet creates an empty image set
func NewImageSet() *ImageSet {
	return &ImageSet{
		images:   make(map[string]*entity.UploadedImage),
		inflight: make(map[string]chan struct{}),
		touched:  time.Now(),
	}
}

// Add stores an image, assigning an ID when it has none, and returns a snapshot of it
func (s *ImageSet) Add(img entity.UploadedImage) entity.UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}
	img.Loading = false

	if _, exists := s.images[img.ID]; !exists {
		s.order = append(s.order, img.ID)
	}
	rec := img
	s.images[img.ID] = &rec
	s.touched = time.Now()

	return snapshot(&rec)
}

// Remove deletes an image and releases its content
func (s *ImageSet) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.images[id]
	if !ok {
		return entity.ErrImageNotFound
	}
	rec.Content = nil
	delete(s.images, id)
	s.release(id)

	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.touched = time.Now()
	return nil
}

// Clear removes every image
func (s *ImageSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.images {
		rec.Content = nil
		s.release(id)
	}
	s.images = make(map[string]*entity.UploadedImage)
	s.order = nil
}

// Get returns a snapshot of one image
func (s *ImageSet) Get(id string) (entity.UploadedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.images[id]
	if !ok {
		return entity.UploadedImage{}, false
	}
	return snapshot(rec), true
}

// List returns snapshots of all images in upload order
func (s *ImageSet) List() []entity.UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.UploadedImage, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, snapshot(s.images[id]))
	}
	return out
}

// Pending returns the images that have neither an analysis nor a request in flight
func (s *ImageSet) Pending() []entity.UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.UploadedImage
	for _, id := range s.order {
		rec := s.images[id]
		if rec.Analysis == nil && !rec.Loading {
			out = append(out, snapshot(rec))
		}
	}
	return out
}

// Len returns the number of images
func (s *ImageSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// LastTouched returns the time of the last mutation
func (s *ImageSet) LastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// begin marks an image as loading. It returns false when the image is gone
// or already being analyzed.
func (s *ImageSet) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.images[id]
	if !ok || rec.Loading {
		return false
	}
	rec.Loading = true
	s.inflight[id] = make(chan struct{})
	s.touched = time.Now()
	return true
}

// inFlight returns the done channel of the analysis running for id, or nil
func (s *ImageSet) inFlight(id string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.inflight[id]; ok {
		return ch
	}
	return nil
}

// running returns the done channels of every analysis in flight
func (s *ImageSet) running() []<-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]<-chan struct{}, 0, len(s.inflight))
	for _, ch := range s.inflight {
		out = append(out, ch)
	}
	return out
}

// release closes the done channel of id. Callers hold mu.
func (s *ImageSet) release(id string) {
	if ch, ok := s.inflight[id]; ok {
		close(ch)
		delete(s.inflight, id)
	}
}

// resolve stores the analysis result. It returns false when the image was removed meanwhile.
func (s *ImageSet) resolve(id string, a *entity.Analysis) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.release(id)
	rec, ok := s.images[id]
	if !ok {
		return false
	}
	rec.Loading = false
	rec.Analysis = a
	s.touched = time.Now()
	return true
}

func snapshot(rec *entity.UploadedImage) entity.UploadedImage {
	out := *rec
	if rec.Analysis != nil {
		a := *rec.Analysis
		out.Analysis = &a
	}
	return out
}
