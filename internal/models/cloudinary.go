package models

import "strings"

// CloudinaryResponse поля ответа Cloudinary, которые клиент пересылает после прямой загрузки
type CloudinaryResponse struct {
	PublicID  string  `json:"public_id"`
	SecureURL string  `json:"secure_url"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Bytes     int     `json:"bytes"`
	Eager     []Eager `json:"eager"`
}

// Eager содержит информацию о трансформациях изображения
type Eager struct {
	Status    string `json:"status"`
	SecureURL string `json:"secure_url"`
}

// previewTransformation трансформация превью для карточки объявления
const previewTransformation = "c_fill,w_400,h_300"

// ExtractPreviewURL извлекает URL превью из ответа Cloudinary.
// Если eager-трансформаций нет, строит URL превью из secure_url.
func ExtractPreviewURL(cr CloudinaryResponse) string {
	for _, eager := range cr.Eager {
		if eager.Status == "processing" || eager.Status == "completed" || eager.SecureURL != "" {
			return eager.SecureURL
		}
	}
	return PreviewURL(cr.SecureURL)
}

// PreviewURL вставляет трансформацию превью в URL доставки Cloudinary
func PreviewURL(secureURL string) string {
	const marker = "/upload/"
	i := strings.Index(secureURL, marker)
	if i < 0 {
		return ""
	}
	return secureURL[:i+len(marker)] + previewTransformation + "/" + secureURL[i+len(marker):]
}
