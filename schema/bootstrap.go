package schema

// Bootstrap returns the schema that describes the schema-text directive
// language itself: a P/S/O/G/D filetype whose own field signatures are
// expressed with the container's ordinary field kinds (STRING,
// STRING_LIST). ParseText implements this grammar directly rather than
// routing through the general-purpose container decoder — avoiding a
// package cycle with onefile — but Bootstrap is what a reader should
// report if asked to describe a schema file's own schema.
func Bootstrap() *Schema {
	ft := newFileType("schema")
	must := func(lt *LineType) {
		if err := ft.addLineType(lt); err != nil {
			panic("schema: bootstrap: " + err.Error())
		}
	}
	must(&LineType{Char: 'P', Fields: []FieldKind{String}, Comment: "primary file type name"})
	must(&LineType{Char: 'S', Fields: []FieldKind{String}, Comment: "secondary file type name"})
	must(&LineType{Char: 'O', Fields: []FieldKind{Char, StringList}, Comment: "object line type"})
	must(&LineType{Char: 'G', Fields: []FieldKind{Char, StringList}, Comment: "group line type"})
	must(&LineType{Char: 'D', Fields: []FieldKind{Char, StringList}, Comment: "other line type"})
	if err := ft.AssignOpcodes(); err != nil {
		panic("schema: bootstrap: " + err.Error())
	}
	return &Schema{Blocks: []*FileType{ft}}
}
