package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// SubmitErrorMessage is shown when the intake endpoint cannot be reached or
// rejects the upload.
const SubmitErrorMessage = "Error submitting form. Please try again."

// Outcome is the result class of one submission attempt
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeValidationFailure Outcome = "validation_failure"
	OutcomeTransportFailure  Outcome = "transport_failure"
	OutcomeAbandoned         Outcome = "abandoned"
)

// FieldError is one failed precondition
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result describes how a submission attempt ended
type Result struct {
	Outcome  Outcome                `json:"outcome"`
	Errors   []FieldError           `json:"errors,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// Status is the observable submission state
type Status struct {
	State     string    `json:"state"`
	Progress  int       `json:"progress"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PayloadCoordinate is one valid vertex as sent to intake
type PayloadCoordinate struct {
	BeaconID string  `json:"beaconId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Payload is the composite upload sent to the intake endpoint
type Payload struct {
	TitleNumber      string
	County           string
	LandSize         string
	LandSizeUnit     string
	DeedPlan         draft.DocumentSlot
	SurveyPlan       draft.DocumentSlot
	SupportingTexts  []string
	SupportingFiles  []draft.Attachment
	Coordinates      []PayloadCoordinate
	AreaSquareMeters float64
}

// CheckPreconditions returns every failed precondition at once
func CheckPreconditions(d *draft.Draft) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(d.TitleNumber) == "" {
		errs = append(errs, FieldError{Field: draft.FieldTitleNumber, Message: "Title number is required"})
	}
	if !d.DeedPlan.Present() {
		errs = append(errs, FieldError{Field: draft.FieldDeedPlan, Message: "Deed plan is required (either file or text)"})
	}
	if valid := boundary.CountValid(d.Coordinates); valid < boundary.MinVertices {
		errs = append(errs, FieldError{
			Field:   draft.FieldCoordinates,
			Message: fmt.Sprintf("At least 3 valid coordinates are required (%d more needed)", boundary.MissingCoordinates(valid)),
		})
	}

	return errs
}

// BuildPayload assembles the upload from a draft. Only valid coordinates are
// included, as numbers.
func BuildPayload(d *draft.Draft) *Payload {
	p := &Payload{
		TitleNumber:     d.TitleNumber,
		County:          d.County,
		LandSize:        d.LandSize,
		LandSizeUnit:    string(d.LandSizeUnit),
		DeedPlan:        d.DeedPlan,
		SurveyPlan:      d.SurveyPlan,
		SupportingTexts: append([]string{}, d.SupportingTexts...),
		SupportingFiles: append([]draft.Attachment{}, d.SupportingFiles...),
		Coordinates:     []PayloadCoordinate{},
	}

	points := make([]boundary.Point, 0, len(d.Coordinates))
	for _, c := range d.Coordinates {
		pt, ok := c.Parsed()
		if !ok {
			continue
		}
		points = append(points, pt)
		p.Coordinates = append(p.Coordinates, PayloadCoordinate{BeaconID: c.BeaconID, Lat: pt.Lat, Lng: pt.Lng})
	}
	p.AreaSquareMeters = boundary.ComputeArea(points)

	return p
}

func errorMap(errs []FieldError) map[string]string {
	m := make(map[string]string, len(errs))
	for _, e := range errs {
		m[e.Field] = e.Message
	}
	return m
}
