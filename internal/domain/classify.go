package domain

// WindOverrideSpeed is the wind speed in m/s above which every hour is drawn as wind.
const WindOverrideSpeed = 20.0

// Classify maps an Open-Meteo WMO weather code and the hour's wind speed (m/s) to
// a Category. Wind above WindOverrideSpeed wins over any code.
func Classify(code int, windSpeed float64) Category {
	if windSpeed > WindOverrideSpeed {
		return CategoryWind
	}
	switch {
	case code == 0:
		return CategoryClear
	case code == 1:
		return CategoryMainlyClear
	case code == 2:
		return CategoryLightCloud
	case code == 3:
		return CategoryCloud
	case code >= 45 && code <= 48:
		return CategoryFog
	case code >= 51 && code <= 67:
		return CategoryRain
	case code >= 71 && code <= 75:
		return CategorySnow
	case code >= 80 && code <= 86:
		return CategoryRain
	case code >= 95 && code <= 99:
		return CategoryLightning
	default:
		return CategoryUnknown
	}
}

// ClassifySMHI maps an SMHI Wsymb2 symbol (1-27) to a Category, with the same
// wind override as Classify. Sleet is drawn as rain.
func ClassifySMHI(symbol int, windSpeed float64) Category {
	if windSpeed > WindOverrideSpeed {
		return CategoryWind
	}
	switch {
	case symbol == 1:
		return CategoryClear
	case symbol == 2:
		return CategoryMainlyClear
	case symbol == 3 || symbol == 4:
		return CategoryLightCloud
	case symbol == 5 || symbol == 6:
		return CategoryCloud
	case symbol == 7:
		return CategoryFog
	case symbol == 11 || symbol == 21:
		return CategoryLightning
	case symbol >= 8 && symbol <= 14, symbol >= 18 && symbol <= 24:
		return CategoryRain
	case symbol >= 15 && symbol <= 17, symbol >= 25 && symbol <= 27:
		return CategorySnow
	default:
		return CategoryUnknown
	}
}
