package frameprocessing

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
)

var (
	colorLine    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	colorMargin  = color.RGBA{R: 0, G: 160, B: 160, A: 255}
	colorNew     = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorTracked = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorCounted = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	colorTitle   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	colorTotal   = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	colorText    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// DrawTextEnhanced draws text over a dark background box
func DrawTextEnhanced(mat *gocv.Mat, text string, x, y int, textColor color.RGBA, fontScale float64, thickness int) {
	fontFace := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)

	padding := 6
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{A: 200}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 40, G: 40, B: 40, A: 255}, 1)

	gocv.PutText(mat, text, image.Pt(x+1, y+1), fontFace, fontScale, color.RGBA{A: 100}, thickness)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}

// DrawCountingLine draws the line and the edges of its dead zone
func DrawCountingLine(mat *gocv.Mat, lineY, margin float64) {
	width := mat.Cols()
	y := int(lineY)
	gocv.Line(mat, image.Pt(0, y), image.Pt(width, y), colorLine, 2)

	if margin >= 1 {
		top, bottom := int(lineY-margin), int(lineY+margin)
		gocv.Line(mat, image.Pt(0, top), image.Pt(width, top), colorMargin, 1)
		gocv.Line(mat, image.Pt(0, bottom), image.Pt(width, bottom), colorMargin, 1)
	}
}

// DrawTrack draws a tracked detection with its id and anchor
func DrawTrack(mat *gocv.Mat, a models.Assignment, counted bool) {
	box := a.Detection.Box
	rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2))

	c := colorNew
	switch {
	case counted:
		c = colorCounted
	case a.Matched:
		c = colorTracked
	}

	gocv.Rectangle(mat, rect, c, 2)
	gocv.Circle(mat, image.Pt(int(a.Detection.Anchor.X), int(a.Detection.Anchor.Y)), 4, c, -1)

	label := fmt.Sprintf("#%d %s", a.TrackID, a.Detection.Label)
	gocv.PutText(mat, label, image.Pt(rect.Min.X, max(rect.Min.Y-6, 12)), gocv.FontHersheySimplex, 0.5, c, 1)
}

// DrawCounterPanel draws the running totals in the top-left corner
func DrawCounterPanel(mat *gocv.Mat, counts models.Counts, frame int64) {
	y := 30
	DrawTextEnhanced(mat, "VEHICLE COUNTER", 15, y, colorTitle, 0.8, 2)
	y += 35

	DrawTextEnhanced(mat, fmt.Sprintf("Total: %d  (in %d / out %d)", counts.Total, counts.In.Total, counts.Out.Total), 15, y, colorTotal, 0.7, 2)
	y += 32

	for _, c := range models.AllCategories {
		text := fmt.Sprintf("%s: %d", c, counts.ByCategory.Get(c))
		DrawTextEnhanced(mat, text, 15, y, colorText, 0.6, 1)
		y += 28
	}

	DrawTextEnhanced(mat, fmt.Sprintf("frame %d", frame), 15, y, colorText, 0.5, 1)
}
