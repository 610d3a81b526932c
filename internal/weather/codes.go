package weather

import (
	_ "embed"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed data/weather_codes.yaml
var weatherCodesYAML []byte

// statusUnknown is shown for codes missing from the table.
const statusUnknown = "Unknown"

var weatherCodes = mustLoadCodes(weatherCodesYAML)

func mustLoadCodes(raw []byte) map[int]string {
	var byString map[string]string
	if err := yaml.Unmarshal(raw, &byString); err != nil {
		panic(fmt.Sprintf("weather: invalid code table: %v", err))
	}

	codes := make(map[int]string, len(byString))
	for k, v := range byString {
		code, err := strconv.Atoi(k)
		if err != nil {
			panic(fmt.Sprintf("weather: invalid code %q: %v", k, err))
		}
		codes[code] = v
	}
	return codes
}

// StatusForCode maps a WMO weather interpretation code to a human status.
func StatusForCode(code int) string {
	if status, ok := weatherCodes[code]; ok {
		return status
	}
	return statusUnknown
}

// ConditionForCode maps a WMO code to a coarse condition.
func ConditionForCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}
