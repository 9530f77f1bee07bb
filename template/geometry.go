package template

import "math"

// Rect 是画布空间的轴对齐矩形（左上角原点）。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains 判断点是否落在矩形内（含边界）。
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Center 返回元素的中心点，旋转以它为轴。
func (el Element) Center() (float64, float64) {
	return el.X + el.Width/2, el.Y + el.Height/2
}

// EffectiveBounds 返回元素旋转后的轴对齐包围盒。
// 中心保持不动，四角绕中心旋转后取极值；
// 命中测试与选择手柄的放置都以它为准。
func (el Element) EffectiveBounds() Rect {
	if el.Rotation == 0 {
		return Rect{X: el.X, Y: el.Y, Width: el.Width, Height: el.Height}
	}
	cx, cy := el.Center()
	rad := el.Rotation * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	corners := [4][2]float64{
		{el.X, el.Y},
		{el.X + el.Width, el.Y},
		{el.X + el.Width, el.Y + el.Height},
		{el.X, el.Y + el.Height},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		dx, dy := c[0]-cx, c[1]-cy
		x := cx + dx*cos - dy*sin
		y := cy + dx*sin + dy*cos
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
