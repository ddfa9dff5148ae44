// Package photos 保存用户上传的观演照片及其缩略图。
package photos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/infra/fsx"
	"github.com/John-Robertt/culturelog/internal/infra/imgx"
)

// ErrUnsupportedType 表示扩展名不在允许列表内。
var ErrUnsupportedType = errors.New("unsupported photo type")

var allowedExt = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

// Store 把原图写入 UploadDir，把同名缩略图写入 ThumbDir。
type Store struct {
	UploadDir string
	ThumbDir  string
	Logger    zerolog.Logger
}

// Init 确保两个目录存在。
func (s Store) Init() error {
	if err := fsx.EnsureDir(s.UploadDir); err != nil {
		return fmt.Errorf("创建上传目录失败：%w", err)
	}
	if err := fsx.EnsureDir(s.ThumbDir); err != nil {
		return fmt.Errorf("创建缩略图目录失败：%w", err)
	}
	return nil
}

// Save 以 "<uuid>.<ext>" 保存原图并生成缩略图。
// 缩略图失败只记日志：原图已经保存，照片仍然可用。
func (s Store) Save(originalName string, data []byte) (domain.Photo, error) {
	ext, ok := extOf(originalName)
	if !ok {
		return domain.Photo{}, fmt.Errorf("%w: %q", ErrUnsupportedType, originalName)
	}
	if len(data) == 0 {
		return domain.Photo{}, fmt.Errorf("文件为空：%q", originalName)
	}

	name := uuid.NewString() + "." + ext
	if err := fsx.WriteFileAtomicNoOverwrite(s.UploadDir, name, data); err != nil {
		return domain.Photo{}, fmt.Errorf("保存照片失败：%w", err)
	}

	thumb, err := imgx.Thumbnail(data, imgx.ThumbWidth, imgx.ThumbHeight, imgx.ThumbQuality)
	if err == nil {
		err = fsx.WriteFileAtomicReplace(s.ThumbDir, name, thumb)
	}
	if err != nil {
		s.Logger.Warn().Str("file", name).Err(err).Msg("生成缩略图失败")
	}

	return domain.Photo{Filename: name, OriginalName: filepath.Base(originalName)}, nil
}

// Remove 删除原图与缩略图；文件不存在不算错误。
func (s Store) Remove(filename string) error {
	if !safeName(filename) {
		return fmt.Errorf("非法文件名：%q", filename)
	}
	errUpload := fsx.RemoveIfExists(filepath.Join(s.UploadDir, filename))
	errThumb := fsx.RemoveIfExists(filepath.Join(s.ThumbDir, filename))
	return errors.Join(errUpload, errThumb)
}

// RemoveAll 尽力删除一条记录的全部照片。
func (s Store) RemoveAll(photos []domain.Photo) {
	for _, p := range photos {
		if p.Filename == "" {
			continue
		}
		if err := s.Remove(p.Filename); err != nil {
			s.Logger.Warn().Str("file", p.Filename).Err(err).Msg("删除照片失败")
		}
	}
}

// Reset 清空并重建两个目录。
func (s Store) Reset() error {
	for _, dir := range []string{s.UploadDir, s.ThumbDir} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("目录不能为空")
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("清空目录失败 %s: %w", dir, err)
		}
	}
	return s.Init()
}

func extOf(name string) (string, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return "", false
	}
	ext := strings.ToLower(name[i+1:])
	return ext, allowedExt[ext]
}

func safeName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
