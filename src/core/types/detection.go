package types

// Box 检测框坐标，左上(x1,y1)到右下(x2,y2)，像素单位
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width 检测框宽度
func (b Box) Width() int {
	return b.X2 - b.X1
}

// Height 检测框高度
func (b Box) Height() int {
	return b.Y2 - b.Y1
}

// Detection 单个检测结果
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// MoodResult 情绪分类结果
type MoodResult struct {
	Mood       string  `json:"mood"`
	Confidence float64 `json:"confidence"`
}
