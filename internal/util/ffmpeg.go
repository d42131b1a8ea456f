package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo 模块内容（视频/音频）的元数据
type MediaInfo struct {
	Duration float64 `json:"duration"` // 秒
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
}

// ProbeFunc 便于测试替换
type ProbeFunc func(path string) (*MediaInfo, error)

// ProbeMedia 使用 ffprobe 读取媒体时长和分辨率
func ProbeMedia(path string) (*MediaInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	return ParseProbeOutput(out)
}

func ParseProbeOutput(out string) (*MediaInfo, error) {
	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, fmt.Errorf("解析媒体信息失败: %w", err)
	}

	info := &MediaInfo{Format: "unknown"}
	for _, stream := range result.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}
	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if name, _, _ := strings.Cut(result.Format.Format, ","); name != "" {
		info.Format = name
	}
	return info, nil
}
