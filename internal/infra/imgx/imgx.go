package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	_ "image/gif" // 注册 GIF 解码器（上传允许 gif）
	_ "image/png" // 注册 PNG 解码器

	"golang.org/x/image/draw"
)

const (
	ThumbWidth   = 300
	ThumbHeight  = 400
	ThumbQuality = 85
)

// Thumbnail 生成等比缩小到 maxW x maxH 以内的 JPEG 缩略图。
//
// 约束：
// - 输入允许 JPEG/PNG/GIF；输出固定为 JPEG
// - 只缩小不放大
// - 透明像素铺在白底上（JPEG 没有 alpha）
func Thumbnail(src []byte, maxW, maxH, quality int) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("图片为空")
	}
	if maxW <= 0 || maxH <= 0 {
		return nil, errors.New("缩略图尺寸无效")
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	w, h := fit(b.Dx(), b.Dy(), maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	if quality <= 0 || quality > 100 {
		quality = ThumbQuality
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// fit 返回保持宽高比、不超过 maxW x maxH 的尺寸（至少 1px）。
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// 比较 maxW/w 与 maxH/h，取较小的缩放比；用整数交叉相乘避免浮点误差。
	if maxW*h <= maxH*w {
		nh := h * maxW / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := w * maxH / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}
