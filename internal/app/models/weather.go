package models

import "time"

type CurrentWeather struct {
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Temperature   float64   `json:"temperature"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	WeatherCode   int       `json:"weatherCode"`
	Description   string    `json:"description"`
	IsDay         bool      `json:"isDay"`
	ObservedAt    time.Time `json:"observedAt"`
}
