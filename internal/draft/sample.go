package draft

import "land-portal/parcel-portal/parcel-portal-backend/internal/boundary"

// SampleDraft returns a filled-in parcel in central Nairobi for
// demonstrations and manual testing.
func SampleDraft() *Draft {
	d := NewDraft()
	d.TitleNumber = "LR 12345/67"
	d.County = "Nairobi"
	d.LandSize = "2.5"
	d.LandSizeUnit = boundary.UnitAcres
	d.DeedPlan.Text = "Deed plan registered in 2020"
	d.SurveyPlan.Text = "Survey plan FR No. 123/456"
	d.SupportingTexts = []string{"Land rates clearance certificate"}
	d.Coordinates = []boundary.Coordinate{
		boundary.NewCoordinate("A", "-1.2921", "36.8219"),
		boundary.NewCoordinate("B", "-1.2925", "36.8225"),
		boundary.NewCoordinate("C", "-1.2930", "36.8215"),
		boundary.NewCoordinate("D", "-1.2928", "36.8205"),
	}
	return d
}
