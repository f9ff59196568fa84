package onefile

import "github.com/solidcoredata/one/schema"

// Header and footer lines are themselves records of fixed, built-in
// line types — not part of any user schema — so they are written and
// parsed with the same ASCII record codec (writeASCIIRecord/
// parseASCIIBody) ordinary body records use. metaLineTypes holds their
// field signatures, keyed by line-type character.
var metaLineTypes = map[byte]*schema.LineType{
	'1': {Char: '1', Fields: []schema.FieldKind{schema.String, schema.Int, schema.Int}},   // type, major, minor
	'2': {Char: '2', Fields: []schema.FieldKind{schema.String}},                           // subtype
	'!': {Char: '!', Fields: []schema.FieldKind{schema.String, schema.String, schema.String, schema.String}}, // program, version, command, date
	'<': {Char: '<', Fields: []schema.FieldKind{schema.String, schema.Int}},                // filename, count
	'>': {Char: '>', Fields: []schema.FieldKind{schema.String}},                            // filename
	'$': {Char: '$', Fields: []schema.FieldKind{schema.Int}},                               // 1 iff producer big-endian
	'^': {Char: '^', Fields: nil},                                                          // footer terminator
	'#': {Char: '#', Fields: []schema.FieldKind{schema.Char, schema.Int}},                  // line type, count
	'@': {Char: '@', Fields: []schema.FieldKind{schema.Char, schema.Int}},                  // line type, max list length
	'+': {Char: '+', Fields: []schema.FieldKind{schema.Char, schema.Int}},                  // line type, total list length
	'%': {Char: '%', Fields: []schema.FieldKind{schema.Char, schema.Int, schema.Int}},      // line type, group count, group total
	';': {Char: ';', Fields: []schema.FieldKind{schema.Char, schema.String}},                // line type, serialized listCodec
	'&': {Char: '&', Fields: []schema.FieldKind{schema.IntList}},                            // object index
	'*': {Char: '*', Fields: []schema.FieldKind{schema.IntList}},                            // group index
}

func newMetaRecord(c byte) *Record {
	lt, ok := metaLineTypes[c]
	if !ok {
		panic("onefile: unknown meta line type " + string(c))
	}
	return newRecord(lt)
}
