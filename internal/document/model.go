package document

import (
	"encoding/json"
	"fmt"
)

// Version is the interop format version written by this package.
const Version = 17

type Type string

const (
	TypeTextNode        Type = "core:text_node"
	TypeSection         Type = "core:section"
	TypeImageNode       Type = "core:image_node"
	TypeSvgNode         Type = "core:svg_node"
	TypeUrlNode         Type = "core:url_node"
	TypePortalNode      Type = "core:portal_node"
	TypeConnectPoint    Type = "core:connect_point"
	TypePenStroke       Type = "core:pen_stroke"
	TypeLineEdge        Type = "core:line_edge"
	TypeCatmullRomEdge  Type = "core:cublic_catmull_rom_spline_edge"
	TypeMultiTargetEdge Type = "core:multi_target_undirected_edge"
)

// IsEntity reports whether t names an entity type.
func (t Type) IsEntity() bool {
	switch t {
	case TypeTextNode, TypeSection, TypeImageNode, TypeSvgNode, TypeUrlNode,
		TypePortalNode, TypeConnectPoint, TypePenStroke:
		return true
	}
	return false
}

// IsAssociation reports whether t names an association type.
func (t Type) IsAssociation() bool {
	switch t {
	case TypeLineEdge, TypeCatmullRomEdge, TypeMultiTargetEdge:
		return true
	}
	return false
}

// Document is the persisted mind map shared with external tools.
type Document struct {
	Version      int           `json:"version"`
	Entities     []Entity      `json:"entities"`
	Associations []Association `json:"associations"`
	Tags         []string      `json:"tags"`
}

// Entity carries the fields of every entity type; Type decides which apply.
// Required per-type strings are pointers so a missing field differs from an empty one.
type Entity struct {
	UUID     string    `json:"uuid"`
	Type     Type      `json:"type"`
	Location []float64 `json:"location"`
	Details  string    `json:"details,omitempty"`

	Text       *string   `json:"text,omitempty"`
	Size       []float64 `json:"size,omitempty"`
	Color      []float64 `json:"color,omitempty"`
	SizeAdjust string    `json:"sizeAdjust,omitempty"`

	Children    []string `json:"children,omitempty"`
	IsHidden    bool     `json:"isHidden,omitempty"`
	IsCollapsed bool     `json:"isCollapsed,omitempty"`

	// Path is the attachment id of an image or svg node.
	Path  *string `json:"path,omitempty"`
	Scale float64 `json:"scale,omitempty"`

	URL   *string `json:"url,omitempty"`
	Title string  `json:"title,omitempty"`

	PortalFilePath *string   `json:"portalFilePath,omitempty"`
	TargetLocation []float64 `json:"targetLocation,omitempty"`
	CameraScale    float64   `json:"cameraScale,omitempty"`

	// Content is the pen stroke path, "x,y,pressure~x,y,pressure".
	Content *string `json:"content,omitempty"`
}

// Association is an edge. Directed edges use Source and Target, multi-target edges use
// Targets.
type Association struct {
	UUID  string    `json:"uuid"`
	Type  Type      `json:"type"`
	Text  string    `json:"text,omitempty"`
	Color []float64 `json:"color,omitempty"`

	Source         string    `json:"source,omitempty"`
	Target         string    `json:"target,omitempty"`
	SourceRectRate []float64 `json:"sourceRectRate,omitempty"`
	TargetRectRate []float64 `json:"targetRectRate,omitempty"`

	ControlPoints [][]float64 `json:"controlPoints,omitempty"`
	Alpha         float64     `json:"alpha,omitempty"`
	Tension       float64     `json:"tension,omitempty"`

	Targets    []string    `json:"targets,omitempty"`
	RectRates  [][]float64 `json:"rectRates,omitempty"`
	CenterRate []float64   `json:"centerRate,omitempty"`
	Arrow      string      `json:"arrow,omitempty"`
	RenderType string      `json:"renderType,omitempty"`
	Padding    *float64    `json:"padding,omitempty"`
}

// New returns an empty document at the current version.
func New() *Document {
	return &Document{
		Version:      Version,
		Entities:     []Entity{},
		Associations: []Association{},
		Tags:         []string{},
	}
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Marshal encodes the document with stable indentation.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Entity returns the entity with the given uuid.
func (d *Document) Entity(uuid string) (*Entity, bool) {
	for i := range d.Entities {
		if d.Entities[i].UUID == uuid {
			return &d.Entities[i], true
		}
	}
	return nil, false
}

// Ptr returns a pointer to s, for the optional string fields.
func Ptr(s string) *string {
	return &s
}
