package models

// ImageSource tells where a resolved destination image came from.
type ImageSource string

const (
	ImageSourceSearch      ImageSource = "search"
	ImageSourceWikipedia   ImageSource = "wikipedia"
	ImageSourcePlaceholder ImageSource = "placeholder"
	ImageSourcePixel       ImageSource = "pixel"
)

// PlaceImage carries the image inlined as a data URL.
type PlaceImage struct {
	Place  string      `json:"place"`
	Image  string      `json:"image"`
	Source ImageSource `json:"source"`
}
