package document

import "github.com/google/uuid"

// NewSampleDocument builds a small mind map: a central topic with three branches, two
// of them grouped in a section, a freehand underline and a connect point hub.
func NewSampleDocument() *Document {
	rootID := uuid.NewString()
	ideasID := uuid.NewString()
	plansID := uuid.NewString()
	notesID := uuid.NewString()
	sectionID := uuid.NewString()
	hubID := uuid.NewString()
	strokeID := uuid.NewString()

	doc := New()
	doc.Entities = []Entity{
		{
			UUID:     rootID,
			Type:     TypeTextNode,
			Location: []float64{0, 0},
			Text:     Ptr("Central topic"),
			Details:  "Start here.",
			Color:    []float64{0, 0, 0, 0},
		},
		{
			UUID:     ideasID,
			Type:     TypeTextNode,
			Location: []float64{400, -200},
			Text:     Ptr("Ideas"),
		},
		{
			UUID:     plansID,
			Type:     TypeTextNode,
			Location: []float64{400, 0},
			Text:     Ptr("Plans"),
		},
		{
			UUID:     notesID,
			Type:     TypeTextNode,
			Location: []float64{400, 250},
			Text:     Ptr("Notes"),
		},
		{
			UUID:     sectionID,
			Type:     TypeSection,
			Location: []float64{360, -280},
			Size:     []float64{300, 380},
			Text:     Ptr("Next week"),
			Children: []string{ideasID, plansID},
			Color:    []float64{80, 120, 200, 0.3},
		},
		{
			UUID:     hubID,
			Type:     TypeConnectPoint,
			Location: []float64{250, 100},
		},
		{
			UUID:     strokeID,
			Type:     TypePenStroke,
			Location: []float64{0, 80},
			Content:  Ptr("0,80,1~60,84,1~120,82,0.8~180,86,0.6"),
			Color:    []float64{220, 60, 60, 1},
		},
	}
	doc.Associations = []Association{
		{UUID: uuid.NewString(), Type: TypeLineEdge, Source: rootID, Target: ideasID},
		{UUID: uuid.NewString(), Type: TypeLineEdge, Source: rootID, Target: plansID, Text: "soon"},
		{UUID: uuid.NewString(), Type: TypeCatmullRomEdge, Source: rootID, Target: hubID},
		{
			UUID:    uuid.NewString(),
			Type:    TypeMultiTargetEdge,
			Targets: []string{hubID, notesID, plansID},
		},
	}
	doc.Tags = []string{rootID}
	return doc
}
