package models

import "fmt"

func formatCoords(lat, lon float64) string {
	ns := "N"
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	ew := "E"
	if lon < 0 {
		ew = "W"
		lon = -lon
	}
	return fmt.Sprintf("%.2f°%s, %.2f°%s", lat, ns, lon, ew)
}
