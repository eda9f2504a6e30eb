package boundary

import "strings"

// Counties lists the 47 Kenyan counties offered for parcel registration
var Counties = []string{
	"Mombasa", "Kwale", "Kilifi", "Tana River", "Lamu", "Taita Taveta",
	"Garissa", "Wajir", "Mandera", "Marsabit", "Isiolo", "Meru", "Tharaka Nithi",
	"Embu", "Kitui", "Machakos", "Makueni", "Nyandarua", "Nyeri", "Kirinyaga",
	"Muranga", "Kiambu", "Turkana", "West Pokot", "Samburu", "Trans Nzoia",
	"Uasin Gishu", "Elgeyo Marakwet", "Nandi", "Baringo", "Laikipia", "Nakuru",
	"Narok", "Kajiado", "Kericho", "Bomet", "Kakamega", "Vihiga", "Bungoma",
	"Busia", "Siaya", "Kisumu", "Homa Bay", "Migori", "Kisii", "Nyamira", "Nairobi",
}

// NormalizeCounty returns the canonical county spelling. An empty name is
// accepted since the county is optional.
func NormalizeCounty(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", true
	}
	for _, c := range Counties {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}
