// Package units converts the core's native SI speed values (m/s) into the
// display unit an operator asked for.
package units

// Recognised speed display units.
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits lists every unit ConvertSpeed recognises.
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid reports whether unit is one ConvertSpeed recognises.
func IsValid(unit string) bool {
	for _, v := range ValidUnits {
		if unit == v {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed from metres per second, the core's native
// unit, into targetUnits. Unknown units pass through unchanged.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}
