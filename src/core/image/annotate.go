package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"petmood-go/src/core/types"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	rectThickness = 2
	labelPadding  = 5
)

// 检测框和标签背景使用同一种绿色
var annotationColor = color.RGBA{0, 255, 0, 255}

// Annotate 在原图上绘制检测框和情绪标签，返回新的图片缓冲区
func Annotate(src image.Image, box types.Box, petType, mood string, confidence float64) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	drawRect(dst, box, annotationColor)

	label := fmt.Sprintf("%s - %s (%.1f%%)", petType, mood, confidence*100)
	drawLabel(dst, box, label)

	return dst
}

// drawRect 绘制检测框边框
func drawRect(img *image.RGBA, box types.Box, col color.Color) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < rectThickness; t++ {
		for x := box.X1; x <= box.X2; x++ {
			setPixel(x, box.Y1+t)
			setPixel(x, box.Y2-t)
		}
		for y := box.Y1; y <= box.Y2; y++ {
			setPixel(box.X1+t, y)
			setPixel(box.X2-t, y)
		}
	}
}

// drawLabel 在检测框上方绘制带背景的标签文本，顶部放不下时移到框内
func drawLabel(img *image.RGBA, box types.Box, label string) {
	face := basicfont.Face7x13

	textWidth := font.MeasureString(face, label).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	bgTop := box.Y1 - textHeight - 2*labelPadding
	if bgTop < img.Bounds().Min.Y {
		bgTop = box.Y1
	}
	bgRect := image.Rect(box.X1, bgTop, box.X1+textWidth+2*labelPadding, bgTop+textHeight+2*labelPadding)
	bgRect = bgRect.Intersect(img.Bounds())
	draw.Draw(img, bgRect, image.NewUniform(annotationColor), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(box.X1+labelPadding, bgTop+labelPadding+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(label)
}
