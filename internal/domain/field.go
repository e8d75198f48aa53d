package domain

// FieldKind is the closed set of input kinds a normalized field can have
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindSelect   FieldKind = "select"
	KindRadio    FieldKind = "radio"
	KindCheckbox FieldKind = "checkbox"
	KindButton   FieldKind = "button"
)

// IsValid checks if the field kind is a defined enum value
func (k FieldKind) IsValid() bool {
	switch k {
	case KindText, KindSelect, KindRadio, KindCheckbox, KindButton:
		return true
	}
	return false
}

// FieldCategory is the semantic classification of a field's purpose
type FieldCategory string

const (
	CategoryIdentityAadhaar FieldCategory = "identity-aadhaar"
	CategoryIdentityPAN     FieldCategory = "identity-pan"
	CategoryVerificationOTP FieldCategory = "verification-otp"
	CategoryContactMobile   FieldCategory = "contact-mobile"
	CategoryContactEmail    FieldCategory = "contact-email"
	CategoryLocationPincode FieldCategory = "location-pincode"
	CategoryLocationCity    FieldCategory = "location-city"
	CategoryLocationState   FieldCategory = "location-state"
	CategoryLocationAddress FieldCategory = "location-address"
	CategoryPersonalName    FieldCategory = "personal-name"
	CategoryBusinessName    FieldCategory = "business-name"
	CategoryGeneral         FieldCategory = "general"
)

// IsValid checks if the category is a defined enum value
func (c FieldCategory) IsValid() bool {
	switch c {
	case CategoryIdentityAadhaar, CategoryIdentityPAN, CategoryVerificationOTP,
		CategoryContactMobile, CategoryContactEmail, CategoryLocationPincode,
		CategoryLocationCity, CategoryLocationState, CategoryLocationAddress,
		CategoryPersonalName, CategoryBusinessName, CategoryGeneral:
		return true
	}
	return false
}

// Option is a single choice of a select/radio control
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// RawElement is an unprocessed snapshot of one interactive control on the
// source page, produced by a snapshot provider. It carries no identity beyond
// structural equality and is consumed once per extraction run.
type RawElement struct {
	Identifier      string   `json:"identifier"`
	Name            string   `json:"name"`
	ElementKind     string   `json:"element_kind"`
	TagKind         string   `json:"tag_kind"`
	CSSClasses      string   `json:"css_classes"`
	Placeholder     string   `json:"placeholder"`
	IsRequired      bool     `json:"is_required"`
	IsDisabled      bool     `json:"is_disabled"`
	Hidden          bool     `json:"hidden,omitempty"`
	CurrentValue    string   `json:"current_value"`
	AssociatedLabel string   `json:"associated_label"`
	Options         []Option `json:"options,omitempty"`
}

// NormalizedField is the cleaned, categorized, rule-annotated representation
// of a RawElement. Immutable once placed into a FormSchema.
type NormalizedField struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Kind            FieldKind         `json:"kind"`
	Label           string            `json:"label,omitempty"`
	Placeholder     string            `json:"placeholder,omitempty"`
	Required        bool              `json:"required"`
	Options         []Option          `json:"options,omitempty"`
	StepName        string            `json:"step_name"`
	FieldIndex      int               `json:"field_index"`
	FieldCategory   FieldCategory     `json:"field_category"`
	ValidationRules []ValidationRule  `json:"validation_rules"`
	UIHints         map[string]string `json:"ui_hints,omitempty"`
}

// Ref returns a step-qualified reference for the field, unique within a schema.
// Falls back to the name when the id is empty; a normalized field always has
// at least one of the two.
func (f NormalizedField) Ref() string {
	id := f.ID
	if id == "" {
		id = f.Name
	}
	return f.StepName + "." + id
}
