package domain

// Line is one stroke segment drawn on a shared whiteboard.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (l Line) Args() []any {
	return []any{l.X1, l.Y1, l.X2, l.Y2}
}
