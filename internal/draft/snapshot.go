package draft

import (
	"bytes"
	"encoding/json"
	"fmt"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
)

// snapshotDocument is the persisted form of a draft. File contents are
// never included.
type snapshotDocument struct {
	TitleNumber         string                `json:"titleNumber"`
	County              string                `json:"county"`
	LandSize            string                `json:"landSize"`
	LandSizeUnit        string                `json:"landSizeUnit"`
	DeedPlanText        string                `json:"deedPlanText"`
	SurveyPlanText      string                `json:"surveyPlanText"`
	SupportingDocsTexts []string              `json:"supportingDocsTexts"`
	Coordinates         []boundary.Coordinate `json:"coordinates"`
}

// EncodeSnapshot renders the persisted document for d
func EncodeSnapshot(d *Draft) ([]byte, error) {
	doc := snapshotDocument{
		TitleNumber:         d.TitleNumber,
		County:              d.County,
		LandSize:            d.LandSize,
		LandSizeUnit:        string(d.LandSizeUnit),
		DeedPlanText:        d.DeedPlan.Text,
		SurveyPlanText:      d.SurveyPlan.Text,
		SupportingDocsTexts: d.SupportingTexts,
		Coordinates:         d.Coordinates,
	}
	if doc.SupportingDocsTexts == nil {
		doc.SupportingDocsTexts = []string{}
	}
	if doc.Coordinates == nil {
		doc.Coordinates = []boundary.Coordinate{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode draft snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot restores a draft leniently. Unknown keys are ignored and
// missing or malformed values fall back to the empty draft's defaults. The
// returned draft is never nil; the error is set only when data is not a JSON
// object at all.
func DecodeSnapshot(data []byte) (*Draft, error) {
	d := NewDraft()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return d, fmt.Errorf("decode draft snapshot: %w", err)
	}

	if v, ok := fields["titleNumber"]; ok {
		d.TitleNumber = textValue(v)
	}
	if v, ok := fields["county"]; ok {
		d.County = textValue(v)
	}
	if v, ok := fields["landSize"]; ok {
		d.LandSize = textValue(v)
	}
	if v, ok := fields["landSizeUnit"]; ok {
		if unit, known := boundary.ParseLandSizeUnit(textValue(v)); known {
			d.LandSizeUnit = unit
		}
	}
	if v, ok := fields["deedPlanText"]; ok {
		d.DeedPlan.Text = textValue(v)
	}
	if v, ok := fields["surveyPlanText"]; ok {
		d.SurveyPlan.Text = textValue(v)
	}
	if v, ok := fields["supportingDocsTexts"]; ok {
		if texts, ok := textList(v); ok {
			d.SupportingTexts = texts
		}
	}
	if v, ok := fields["coordinates"]; ok {
		d.Coordinates = coordinateList(v)
	}

	return d, nil
}

// textValue reads a JSON string or number as text; anything else is "".
func textValue(raw json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func textList(raw json.RawMessage) ([]string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = textValue(item)
	}
	return out, true
}

// coordinateList restores the coordinate sequence. Anything other than an
// array of objects yields an empty list. Missing or repeated ids are
// re-minted so every record stays addressable.
func coordinateList(raw json.RawMessage) []boundary.Coordinate {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []boundary.Coordinate{}
	}

	out := make([]boundary.Coordinate, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			return []boundary.Coordinate{}
		}

		c := boundary.NewCoordinate(
			textValue(obj["beaconId"]),
			textValue(obj["lat"]),
			textValue(obj["lng"]),
		)
		if id := textValue(obj["id"]); id != "" && !seen[id] {
			c.ID = id
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
