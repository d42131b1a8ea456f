package util

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

const (
	MimeVideo = "video/"
	MimeAudio = "audio/"
	MimeImage = "image/"
	MimePDF   = "application/pdf"
	MimeText  = "text/"
)

// AllowedContentTypes 模块内容允许上传的类型
var AllowedContentTypes = []string{MimeVideo, MimeAudio, MimeImage, MimePDF, MimeText}

var videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}

// ValidateMimeType 根据文件头嗅探 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

func IsVideo(mimeType, filename string) bool {
	if strings.HasPrefix(mimeType, MimeVideo) {
		return true
	}
	return slices.Contains(videoExtensions, strings.ToLower(filepath.Ext(filename)))
}

func IsMedia(mimeType, filename string) bool {
	return strings.HasPrefix(mimeType, MimeAudio) || IsVideo(mimeType, filename)
}
