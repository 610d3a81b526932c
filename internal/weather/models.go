package weather

// Unit is the temperature unit requested from providers.
type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
)

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	return u == Celsius || u == Fahrenheit
}

// Symbol returns the display symbol for u.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// Current is the weather panel content. Temperatures are whole degrees in Unit.
type Current struct {
	Temperature   int       `json:"temperature"`
	FeelsLike     int       `json:"feelsLike"`
	Unit          string    `json:"unit"`
	WeatherStatus string    `json:"weatherStatus"`
	WeatherCode   *int      `json:"weatherCode,omitempty"`
	Condition     Condition `json:"condition"`
	Provider      string    `json:"provider"`
}
