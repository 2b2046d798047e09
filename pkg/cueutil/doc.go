// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates documents against embedded CUE schemas.
//
// Both the mod manifest (JSON) and the tool's configuration file (CUE) are
// checked the same way: compile the schema, compile the document, unify it
// with a schema definition, validate, and decode into Go values. Because JSON
// is valid CUE, one code path serves both.
//
//	//go:embed manifest_schema.cue
//	var schema []byte
//
//	fields, err := cueutil.Decode[manifestFields](schema, data, "#Manifest",
//	    cueutil.WithFilename("fabric.mod.json"))
package cueutil
