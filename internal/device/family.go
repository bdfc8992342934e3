package device

import "strings"

// 设备族
const (
	FamilySphero = "sphero"
	FamilyMBot   = "mbot"
	FamilyRanger = "ranger"
	FamilyEV3    = "ev3"
	FamilyAIY    = "aiy"
)

// GuessFamily 根据广播名/端口描述推断设备族与型号
func GuessFamily(name string) (family, variant string) {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "sk-"), strings.HasPrefix(n, "bb-"), strings.HasPrefix(n, "2b-"):
		return FamilySphero, "v1"
	case strings.Contains(n, "sphero"):
		return FamilySphero, "classic"
	case strings.Contains(n, "ranger"), strings.Contains(n, "auriga"):
		return FamilyRanger, ""
	case strings.Contains(n, "mbot"), strings.Contains(n, "makeblock"):
		return FamilyMBot, ""
	case strings.Contains(n, "ev3"):
		return FamilyEV3, ""
	case strings.Contains(n, "raspberry"), strings.Contains(n, "aiy"):
		return FamilyAIY, ""
	}
	return "", ""
}
