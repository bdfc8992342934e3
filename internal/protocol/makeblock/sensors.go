package makeblock

// LineFollower 巡线传感器状态，位为 1 表示该侧未检测到黑线
type LineFollower struct {
	Raw   int  `json:"raw"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// NewLineFollower 由原始值（0..3）构造，Left/Right 为 true 表示该侧压线
func NewLineFollower(raw int) LineFollower {
	return LineFollower{Raw: raw, Left: raw&0x02 == 0, Right: raw&0x01 == 0}
}
