package weather

// ConditionForCode maps a forecast weather code to its icon family.
func ConditionForCode(code int) Condition {
	switch code {
	case 15, 16, 17, 18, 21, 22, 33, 34, 35, 36, 41:
		return ConditionThunderstorm
	case 1:
		return ConditionClear
	case 25, 26, 27, 28:
		return ConditionCloudyFog
	case 2, 3, 4, 5, 6, 7:
		return ConditionCloudy
	case 24:
		return ConditionFog
	case 8, 9, 10, 11, 12, 13, 14, 19, 20, 29, 30, 31, 32, 38, 39:
		return ConditionPartiallyClearWithRain
	case 23, 37, 42:
		return ConditionSnowing
	default:
		return ConditionUnknown
	}
}
