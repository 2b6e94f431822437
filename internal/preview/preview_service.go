package preview

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/h2non/bimg"
	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
)

const (
	maxImageSize = 1024 // максимальный размер превью в пикселях
	jpegQuality  = 85
	pdfTimeout   = 30 * time.Second
)

type renderFunc func(ctx context.Context, mediaType string, data []byte) ([]byte, error)

// Service строит JPEG-превью файлов и держит их в памяти.
// Ключ кеша включает размер и время создания, поэтому перезапись элемента при импорте его сбрасывает.
type Service struct {
	mu     sync.Mutex
	cache  map[string][]byte
	render renderFunc
}

func NewService() *Service {
	s := &Service{cache: make(map[string][]byte)}
	s.render = s.generate
	return s
}

// Supported сообщает, умеет ли сервис строить превью для типа
func Supported(mediaType string) bool {
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf":
		return true
	}
	return false
}

// GetOrGeneratePreview возвращает превью из кеша или генерирует новое
func (s *Service) GetOrGeneratePreview(ctx context.Context, item *domain.Item) ([]byte, error) {
	if item.IsFolder {
		return nil, domain.NewValidation("folders have no preview")
	}
	if !Supported(item.MediaType) {
		return nil, domain.NewValidation("preview is not supported for %q", item.MediaType)
	}

	key := cacheKey(item)

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	log.Printf("[Preview] generating preview for %s (%s, %d bytes)", item.ID, item.MediaType, len(item.Content))

	data, err := s.render(ctx, item.MediaType, item.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to generate preview: %w", err)
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return data, nil
}

// Notify сбрасывает кеш при удалении элементов и после импорта, который может заменить содержимое
func (s *Service) Notify(event domain.Event) {
	switch event.Type {
	case domain.EventItemDeleted, domain.EventTrashEmptied, domain.EventItemsImported:
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ItemID == "" {
		s.cache = make(map[string][]byte)
		return
	}
	prefix := event.ItemID + "/"
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
}

func cacheKey(item *domain.Item) string {
	return fmt.Sprintf("%s/%d/%d", item.ID, item.SizeBytes, item.CreatedAt.UnixNano())
}

func (s *Service) generate(ctx context.Context, mediaType string, data []byte) ([]byte, error) {
	if mediaType == "application/pdf" {
		return generatePDFPreview(ctx, data)
	}
	return optimizeImage(data)
}

// generatePDFPreview рендерит первую страницу через pdftoppm
func generatePDFPreview(ctx context.Context, data []byte) ([]byte, error) {
	tmpPath, err := os.MkdirTemp("", "preview_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpPath)

	pdfPath := filepath.Join(tmpPath, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write PDF file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	outputPath := filepath.Join(tmpPath, "output")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-jpeg",
		"-f", "1",
		"-l", "1",
		"-scale-to", fmt.Sprintf("%d", maxImageSize),
		"-singlefile",
		pdfPath,
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to convert PDF: %w (output: %s)", err, string(out))
	}

	imgData, err := os.ReadFile(outputPath + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to read converted image: %w", err)
	}

	return optimizeImage(imgData)
}

// optimizeImage уменьшает изображение до maxImageSize по большей стороне
func optimizeImage(data []byte) ([]byte, error) {
	image := bimg.NewImage(data)

	size, err := image.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get image size: %w", err)
	}

	width, height := calculateNewDimensions(size.Width, size.Height, maxImageSize)

	processed, err := image.Process(bimg.Options{
		Width:   width,
		Height:  height,
		Quality: jpegQuality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	return processed, nil
}

// calculateNewDimensions сохраняет пропорции; маленькие изображения не увеличиваются
func calculateNewDimensions(width, height, maxSize int) (newWidth, newHeight int) {
	if width <= 0 || height <= 0 {
		return maxSize, maxSize
	}
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		newWidth = maxSize
		newHeight = (height * maxSize) / width
	} else {
		newHeight = maxSize
		newWidth = (width * maxSize) / height
	}
	return
}
