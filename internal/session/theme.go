package session

import "github.com/i474232898/weather-card/internal/suntime"

// Theme is the presentation palette chosen from the current moment.
type Theme struct {
	Name             string `json:"name"`
	BackgroundColor  string `json:"backgroundColor"`
	ForegroundColor  string `json:"foregroundColor"`
	BoxShadow        string `json:"boxShadow"`
	TitleColor       string `json:"titleColor"`
	TemperatureColor string `json:"temperatureColor"`
	TextColor        string `json:"textColor"`
}

var (
	lightTheme = Theme{
		Name:             "light",
		BackgroundColor:  "#ededed",
		ForegroundColor:  "#f9f9f9",
		BoxShadow:        "0 1px 3px 0 #999999",
		TitleColor:       "#212121",
		TemperatureColor: "#757575",
		TextColor:        "#828282",
	}
	darkTheme = Theme{
		Name:             "dark",
		BackgroundColor:  "#1F2022",
		ForegroundColor:  "#121416",
		BoxShadow:        "0 1px 4px 0 rgba(12, 12, 13, 0.2), 0 0 0 1px rgba(0, 0, 0, 0.15)",
		TitleColor:       "#f9f9fa",
		TemperatureColor: "#dddddd",
		TextColor:        "#cccccc",
	}
)

// ThemeFor returns the light theme by day and the dark theme otherwise.
func ThemeFor(m suntime.Moment) Theme {
	if m == suntime.Day {
		return lightTheme
	}
	return darkTheme
}
