// Package location maps the cities a user can pick to the names each remote
// dataset expects.
package location

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCity is returned when a display name is not in the table.
var ErrUnknownCity = errors.New("unknown city")

// Keys holds the per-dataset identifiers of one city.
type Keys struct {
	// ObservationName is the weather station reporting current conditions.
	ObservationName string `json:"locationName"`
	// ForecastName is the city name used by the 36-hour forecast.
	ForecastName string `json:"cityName"`
	// SunTableName keys the sunrise/sunset table.
	SunTableName string `json:"sunriseCityName"`
}

// City is one selectable entry.
type City struct {
	Name        string  `json:"name"`
	EnglishName string  `json:"englishName"`
	Keys        Keys    `json:"keys"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

var cities = []City{
	{Name: "宜蘭縣", EnglishName: "Yilan County", Keys: Keys{"宜蘭", "宜蘭縣", "宜蘭"}, Latitude: 24.7641, Longitude: 121.7565},
	{Name: "嘉義市", EnglishName: "Chiayi City", Keys: Keys{"嘉義", "嘉義市", "嘉義"}, Latitude: 23.4959, Longitude: 120.4329},
	{Name: "屏東縣", EnglishName: "Pingtung County", Keys: Keys{"恆春", "屏東縣", "屏東"}, Latitude: 22.0039, Longitude: 120.7463},
	{Name: "雲林縣", EnglishName: "Yunlin County", Keys: Keys{"古坑", "雲林縣", "雲林"}, Latitude: 23.6436, Longitude: 120.5636},
	{Name: "臺東縣", EnglishName: "Taitung County", Keys: Keys{"臺東", "臺東縣", "臺東"}, Latitude: 22.7522, Longitude: 121.1546},
	{Name: "臺北市", EnglishName: "Taipei City", Keys: Keys{"臺北", "臺北市", "臺北"}, Latitude: 25.0377, Longitude: 121.5149},
	{Name: "金門縣", EnglishName: "Kinmen County", Keys: Keys{"金門", "金門縣", "金門"}, Latitude: 24.4073, Longitude: 118.2893},
	{Name: "桃園市", EnglishName: "Taoyuan City", Keys: Keys{"新屋", "桃園市", "桃園"}, Latitude: 25.0067, Longitude: 121.0475},
	{Name: "彰化縣", EnglishName: "Changhua County", Keys: Keys{"彰師大", "彰化縣", "彰化"}, Latitude: 24.0814, Longitude: 120.5439},
	{Name: "嘉義縣", EnglishName: "Chiayi County", Keys: Keys{"阿里山", "嘉義縣", "嘉義"}, Latitude: 23.5082, Longitude: 120.8133},
	{Name: "高雄市", EnglishName: "Kaohsiung City", Keys: Keys{"高雄", "高雄市", "高雄"}, Latitude: 22.5660, Longitude: 120.3157},
	{Name: "基隆市", EnglishName: "Keelung City", Keys: Keys{"基隆", "基隆市", "基隆"}, Latitude: 25.1333, Longitude: 121.7405},
	{Name: "臺南市", EnglishName: "Tainan City", Keys: Keys{"南區中心", "臺南市", "臺南"}, Latitude: 22.9932, Longitude: 120.2047},
	{Name: "南投縣", EnglishName: "Nantou County", Keys: Keys{"日月潭", "南投縣", "南投"}, Latitude: 23.8813, Longitude: 120.9080},
	{Name: "臺中市", EnglishName: "Taichung City", Keys: Keys{"臺中", "臺中市", "臺中"}, Latitude: 24.1457, Longitude: 120.6840},
	{Name: "新竹縣", EnglishName: "Hsinchu County", Keys: Keys{"新竹", "新竹縣", "新竹"}, Latitude: 24.8279, Longitude: 121.0142},
	{Name: "花蓮縣", EnglishName: "Hualien County", Keys: Keys{"花蓮", "花蓮縣", "花蓮"}, Latitude: 23.9773, Longitude: 121.6044},
	{Name: "連江縣", EnglishName: "Lienchiang County", Keys: Keys{"馬祖", "連江縣", "馬祖"}, Latitude: 26.1694, Longitude: 119.9233},
	{Name: "澎湖縣", EnglishName: "Penghu County", Keys: Keys{"澎湖", "澎湖縣", "澎湖"}, Latitude: 23.5654, Longitude: 119.5631},
	{Name: "新北市", EnglishName: "New Taipei City", Keys: Keys{"板橋", "新北市", "新北"}, Latitude: 24.9976, Longitude: 121.4338},
}

// Resolve returns the dataset identifiers for a display name. Both the
// Chinese name and the English name are accepted; the English match ignores
// case.
func Resolve(displayName string) (Keys, error) {
	c, err := Lookup(displayName)
	if err != nil {
		return Keys{}, err
	}
	return c.Keys, nil
}

// Lookup returns the table entry for a display name.
func Lookup(displayName string) (City, error) {
	name := strings.TrimSpace(displayName)
	for _, c := range cities {
		if c.Name == name || strings.EqualFold(c.EnglishName, name) {
			return c, nil
		}
	}
	return City{}, fmt.Errorf("%w: %q", ErrUnknownCity, displayName)
}

// Available lists every selectable city in table order.
func Available() []City {
	out := make([]City, len(cities))
	copy(out, cities)
	return out
}
