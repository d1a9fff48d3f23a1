package parser

// Field names one extracted card attribute.
type Field string

const (
	FieldCode      Field = "code"
	FieldCategory  Field = "category"
	FieldImage     Field = "image"
	FieldName      Field = "name"
	FieldCost      Field = "cost"
	FieldAttribute Field = "attribute"
	FieldPower     Field = "power"
	FieldCounter   Field = "counter"
	FieldColor     Field = "color"
	FieldType      Field = "type"
	FieldSets      Field = "sets"
	FieldEffect    Field = "effect"
	FieldTrigger   Field = "trigger"
)

// fieldOrder is the extraction order. Code comes first so later failures can
// name the card.
var fieldOrder = []Field{
	FieldCode,
	FieldCategory,
	FieldImage,
	FieldName,
	FieldCost,
	FieldAttribute,
	FieldPower,
	FieldCounter,
	FieldColor,
	FieldType,
	FieldSets,
	FieldEffect,
	FieldTrigger,
}

// Pick selects which of several matches a rule reads.
type Pick int

const (
	PickFirst Pick = iota
	PickLast
)

// FieldRule locates one field inside a card node.
type FieldRule struct {
	Selector string
	// Offset is the rune length of the label text preceding the value.
	Offset int
	Pick   Pick
	// Attr reads an attribute instead of the node text.
	Attr string
	// FromPrev searches the node's previous sibling instead of the node.
	FromPrev bool
	Optional bool
}

// LocaleProfile is the selector and label-offset table for one site instance.
// Fields without a rule are not extracted.
type LocaleProfile struct {
	Locale string
	// ImageBase resolves relative image paths.
	ImageBase string
	Fields    map[Field]FieldRule
}

// Has reports whether the profile extracts f.
func (p LocaleProfile) Has(f Field) bool {
	_, ok := p.Fields[f]
	return ok
}

// SourceProfile returns the Japanese card list layout. Extracted records are
// stored under locale.
func SourceProfile(imageBase, locale string) LocaleProfile {
	return LocaleProfile{
		Locale:    locale,
		ImageBase: imageBase,
		Fields: map[Field]FieldRule{
			FieldCode:      {Selector: ".infoCol span"},
			FieldCategory:  {Selector: ".infoCol span", Pick: PickLast},
			FieldImage:     {Selector: "img", Attr: "src", FromPrev: true},
			FieldName:      {Selector: ".cardName"},
			FieldCost:      {Selector: ".cost", Offset: 3},
			FieldAttribute: {Selector: ".attribute h3"},
			FieldPower:     {Selector: ".power", Offset: 3},
			FieldCounter:   {Selector: ".counter", Offset: 5},
			FieldColor:     {Selector: ".color", Offset: 1},
			FieldType:      {Selector: ".feature", Offset: 2},
			FieldSets:      {Selector: ".getInfo", Offset: 11},
			FieldEffect:    {Selector: ".text", Offset: 4},
			FieldTrigger:   {Selector: ".trigger", Offset: 4, Optional: true},
		},
	}
}

// TranslationProfile returns the English card list layout. Only the
// translated text fields are read; translations are stored under locale.
func TranslationProfile(imageBase, locale string) LocaleProfile {
	return LocaleProfile{
		Locale:    locale,
		ImageBase: imageBase,
		Fields: map[Field]FieldRule{
			FieldCode:    {Selector: ".infoCol span"},
			FieldImage:   {Selector: "img", Attr: "src", FromPrev: true},
			FieldName:    {Selector: ".cardName"},
			FieldType:    {Selector: ".feature", Offset: 4},
			FieldEffect:  {Selector: ".text", Offset: 6},
			FieldTrigger: {Selector: ".trigger", Offset: 7, Optional: true},
		},
	}
}
