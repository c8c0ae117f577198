package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	lederrors "github.com/theheadmen/goMeals/internal/errors"
)

// UploadResult - что возвращает хостинг картинок после загрузки
type UploadResult struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id"`
}

// Uploader загружает скриншот оплаты на внешний хостинг и возвращает
// постоянный URL. Передается в сервисный слой явно, без глобальных синглтонов.
type Uploader interface {
	Upload(ctx context.Context, payload string, folder string) (UploadResult, error)
}

// CloudUploader - клиент REST API хостинга картинок в стиле Cloudinary:
// POST {baseURL}/image/upload c form-полями file/upload_preset/folder.
type CloudUploader struct {
	BaseURL      string
	UploadPreset string
	Client       *http.Client
}

func NewCloudUploader(baseURL, uploadPreset string) *CloudUploader {
	return &CloudUploader{
		BaseURL:      baseURL,
		UploadPreset: uploadPreset,
		Client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// IsSupportedPayload - загрузить можно base64 data URI или обычный http(s) URL.
// blob: URL существует только на клиенте, сервер его скачать не может.
func IsSupportedPayload(payload string) bool {
	if strings.HasPrefix(payload, "data:image") {
		return true
	}
	if strings.Contains(payload, "blob:") {
		return false
	}
	return strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://")
}

func (u *CloudUploader) Upload(ctx context.Context, payload string, folder string) (UploadResult, error) {
	if !IsSupportedPayload(payload) {
		return UploadResult{}, fmt.Errorf("%w: unsupported payload format", lederrors.ErrUploadFailed)
	}

	form := url.Values{}
	form.Set("file", payload)
	form.Set("upload_preset", u.UploadPreset)
	form.Set("folder", folder)

	uploadURL := fmt.Sprintf("%s/image/upload", u.BaseURL)
	req, err := http.NewRequest("POST", uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return UploadResult{}, fmt.Errorf("ошибка при составлении запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(ctx)

	resp, err := u.Client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", lederrors.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("ошибка при чтении тела ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("upload failed with code %d: %s\n", resp.StatusCode, string(body))
		return UploadResult{}, fmt.Errorf("%w: status %d", lederrors.ErrUploadFailed, resp.StatusCode)
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return UploadResult{}, fmt.Errorf("ошибка при декодировании JSON: %w", err)
	}
	if result.URL == "" {
		return UploadResult{}, fmt.Errorf("%w: empty url in response", lederrors.ErrUploadFailed)
	}

	log.Printf("uploaded payment proof to %s (folder %s)\n", result.URL, folder)
	return result, nil
}
